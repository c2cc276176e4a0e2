// Package config assembles runtime settings. Later sources win: built-in
// defaults, the YAML config file, a .env file, WORLDCORE_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	goerrors "github.com/pixil98/go-errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Save backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultFile is read from the working directory when --config is not
// given. It may be absent.
const DefaultFile = "worldcore.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WORLDCORE_"

// ErrVersion is returned by Parse when --version was given.
var ErrVersion = errors.New("version requested")

// Config holds every runtime setting.
type Config struct {
	GameDir      string `yaml:"game_dir"`
	SaveDir      string `yaml:"save_dir"`
	SaveBackend  string `yaml:"save_backend"`
	SQLitePath   string `yaml:"sqlite_path"`
	Plain        bool   `yaml:"plain"`
	Trace        bool   `yaml:"trace"`
	Seed         int64  `yaml:"seed"`
	AmbushDelay  string `yaml:"ambush_delay"`
	RestartDelay string `yaml:"restart_delay"`
	WrapWidth    int    `yaml:"wrap_width"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`

	// Script replays commands from a file instead of the terminal.
	Script string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	saveDir := ".worldcore/saves"
	if home, err := os.UserHomeDir(); err == nil {
		saveDir = filepath.Join(home, ".worldcore", "saves")
	}
	return Config{
		SaveDir:      saveDir,
		SaveBackend:  BackendFile,
		AmbushDelay:  "1.5s",
		RestartDelay: "0s",
		WrapWidth:    80,
		LogLevel:     "warn",
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	el := goerrors.NewErrorList()

	if c.GameDir == "" {
		el.Add(fmt.Errorf("game_dir is required"))
	}

	switch c.SaveBackend {
	case BackendFile:
		if c.SaveDir == "" {
			el.Add(fmt.Errorf("save_dir is required for the file backend"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			el.Add(fmt.Errorf("sqlite_path is required for the sqlite backend"))
		}
	default:
		el.Add(fmt.Errorf("save_backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.SaveBackend))
	}

	if d, err := time.ParseDuration(c.AmbushDelay); err != nil {
		el.Add(fmt.Errorf("parsing ambush_delay: %w", err))
	} else if d <= 0 {
		el.Add(fmt.Errorf("ambush_delay must be positive"))
	}
	if d, err := time.ParseDuration(c.RestartDelay); err != nil {
		el.Add(fmt.Errorf("parsing restart_delay: %w", err))
	} else if d < 0 {
		el.Add(fmt.Errorf("restart_delay must not be negative"))
	}

	if c.WrapWidth < 0 {
		el.Add(fmt.Errorf("wrap_width must not be negative"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		el.Add(fmt.Errorf("log_level: %w", err))
	}

	return el.Err()
}

// Ambush returns the parsed ambush delay. Call after Validate.
func (c *Config) Ambush() time.Duration {
	d, _ := time.ParseDuration(c.AmbushDelay)
	return d
}

// Restart returns the parsed automatic restart delay. Call after Validate.
func (c *Config) Restart() time.Duration {
	d, _ := time.ParseDuration(c.RestartDelay)
	return d
}

// LoadFile merges a YAML file over c. A missing file is an error only when
// required is set.
func (c *Config) LoadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv merges WORLDCORE_* values from lookup over c.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	el := goerrors.NewErrorList()

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				el.Add(fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("GAME_DIR", &c.GameDir)
	str("SAVE_DIR", &c.SaveDir)
	str("SAVE_BACKEND", &c.SaveBackend)
	str("SQLITE_PATH", &c.SQLitePath)
	boolean("PLAIN", &c.Plain)
	boolean("TRACE", &c.Trace)
	str("AMBUSH_DELAY", &c.AmbushDelay)
	str("RESTART_DELAY", &c.RestartDelay)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			el.Add(fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			c.Seed = n
		}
	}
	if v, ok := lookup(EnvPrefix + "WRAP_WIDTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			el.Add(fmt.Errorf("%sWRAP_WIDTH: %w", EnvPrefix, err))
		} else {
			c.WrapWidth = n
		}
	}

	return el.Err()
}

// Parse builds the configuration from command-line args (without the
// program name). lookup reads the process environment; nil means
// os.LookupEnv.
func Parse(args []string, lookup func(string) (string, bool), usage io.Writer) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fset := flag.NewFlagSet("worldcore", flag.ContinueOnError)
	if usage != nil {
		fset.SetOutput(usage)
	}
	var (
		cfgPath  = fset.String("config", "", "YAML config `file` (default ./"+DefaultFile+")")
		envFile  = fset.String("env-file", ".env", "dotenv `file` with WORLDCORE_* settings")
		version  = fset.Bool("version", false, "print version and exit")
		flagVals Config
	)
	fset.StringVar(&flagVals.SaveDir, "save-dir", "", "directory for file saves")
	fset.StringVar(&flagVals.SaveBackend, "save-backend", "", "save backend: file or sqlite")
	fset.StringVar(&flagVals.SQLitePath, "sqlite", "", "sqlite database `path` for saves")
	fset.BoolVar(&flagVals.Plain, "plain", false, "use the line-oriented interface")
	fset.BoolVar(&flagVals.Trace, "trace", false, "print events after each turn")
	fset.Int64Var(&flagVals.Seed, "seed", 0, "random seed (0 picks one)")
	fset.StringVar(&flagVals.AmbushDelay, "ambush-delay", "", "delay before a hostile character attacks")
	fset.StringVar(&flagVals.RestartDelay, "restart-delay", "", "restart a lost game after this delay (0 waits for RESTART)")
	fset.IntVar(&flagVals.WrapWidth, "wrap", 0, "wrap output at this many columns (0 disables)")
	fset.StringVar(&flagVals.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fset.StringVar(&flagVals.LogFile, "log-file", "", "append logs to this file instead of stderr")
	fset.StringVar(&flagVals.Script, "script", "", "replay commands from a `file`")

	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}
	if *version {
		return Config{}, ErrVersion
	}

	cfg := Default()
	if *cfgPath != "" {
		if err := cfg.LoadFile(*cfgPath, true); err != nil {
			return Config{}, err
		}
	} else if err := cfg.LoadFile(DefaultFile, false); err != nil {
		return Config{}, err
	}

	// The process environment wins over the dotenv file.
	dotenv, err := godotenv.Read(*envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", *envFile, err)
	}
	merged := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(merged); err != nil {
		return Config{}, err
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "save-dir":
			cfg.SaveDir = flagVals.SaveDir
		case "save-backend":
			cfg.SaveBackend = flagVals.SaveBackend
		case "sqlite":
			cfg.SQLitePath = flagVals.SQLitePath
		case "plain":
			cfg.Plain = flagVals.Plain
		case "trace":
			cfg.Trace = flagVals.Trace
		case "seed":
			cfg.Seed = flagVals.Seed
		case "ambush-delay":
			cfg.AmbushDelay = flagVals.AmbushDelay
		case "restart-delay":
			cfg.RestartDelay = flagVals.RestartDelay
		case "wrap":
			cfg.WrapWidth = flagVals.WrapWidth
		case "log-level":
			cfg.LogLevel = flagVals.LogLevel
		case "log-file":
			cfg.LogFile = flagVals.LogFile
		case "script":
			cfg.Script = flagVals.Script
		}
	})
	if fset.NArg() > 0 {
		cfg.GameDir = fset.Arg(0)
	}

	// A sqlite backend without a path keeps its database next to the
	// file saves.
	if cfg.SaveBackend == BackendSQLite && cfg.SQLitePath == "" && cfg.SaveDir != "" {
		cfg.SQLitePath = filepath.Join(cfg.SaveDir, "saves.db")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the logger described by the config. The returned close
// function releases the log file, if any.
func (c *Config) NewLogger() (*logrus.Logger, func() error, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	if c.LogFile == "" {
		log.SetOutput(os.Stderr)
		return log, func() error { return nil }, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, f.Close, nil
}

// String renders the config as YAML for diagnostics.
func (c Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(data))
}
