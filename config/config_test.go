package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env returns a lookup backed by a map.
func env(vals map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vals[key]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Parse([]string{"games/neighborhood"}, env(nil), nil)
	require.NoError(t, err)

	assert.Equal(t, "games/neighborhood", cfg.GameDir)
	assert.Equal(t, BackendFile, cfg.SaveBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.Ambush())
	assert.Equal(t, time.Duration(0), cfg.Restart())
	assert.Equal(t, 80, cfg.WrapWidth)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.Plain)
}

func TestParse_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, dir, DefaultFile, `
game_dir: from-yaml
wrap_width: 60
log_level: info
seed: 11
ambush_delay: 3s
`)
	envFile := writeFile(t, dir, "test.env", "WORLDCORE_WRAP_WIDTH=70\nWORLDCORE_LOG_LEVEL=debug\n")

	cfg, err := Parse(
		[]string{"--env-file", envFile, "--seed", "42"},
		env(map[string]string{"WORLDCORE_LOG_LEVEL": "error"}),
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml", cfg.GameDir, "yaml over defaults")
	assert.Equal(t, 3*time.Second, cfg.Ambush(), "yaml over defaults")
	assert.Equal(t, 70, cfg.WrapWidth, "dotenv over yaml")
	assert.Equal(t, "error", cfg.LogLevel, "environment over dotenv")
	assert.Equal(t, int64(42), cfg.Seed, "flags over everything")
}

func TestParse_ExplicitConfigMustExist(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Parse([]string{"--config", "missing.yaml", "game"}, env(nil), nil)
	assert.Error(t, err)
}

func TestParse_Flags(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Parse([]string{
		"--plain", "--trace",
		"--save-backend", "sqlite", "--save-dir", "/tmp/wc",
		"--restart-delay", "2s", "--wrap", "0",
		"--script", "walkthrough.txt",
		"game",
	}, env(nil), nil)
	require.NoError(t, err)

	assert.True(t, cfg.Plain)
	assert.True(t, cfg.Trace)
	assert.Equal(t, BackendSQLite, cfg.SaveBackend)
	assert.Equal(t, filepath.Join("/tmp/wc", "saves.db"), cfg.SQLitePath)
	assert.Equal(t, 2*time.Second, cfg.Restart())
	assert.Equal(t, 0, cfg.WrapWidth)
	assert.Equal(t, "walkthrough.txt", cfg.Script)
}

func TestParse_Version(t *testing.T) {
	_, err := Parse([]string{"--version"}, env(nil), nil)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestParse_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Parse([]string{"--save-backend", "floppy", "--ambush-delay", "soon"}, env(nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"WORLDCORE_GAME_DIR":    "g",
		"WORLDCORE_PLAIN":       "true",
		"WORLDCORE_SEED":        "9",
		"WORLDCORE_LOG_FILE":    "wc.log",
		"WORLDCORE_SQLITE_PATH": "s.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "g", cfg.GameDir)
	assert.True(t, cfg.Plain)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, "wc.log", cfg.LogFile)
	assert.Equal(t, "s.db", cfg.SQLitePath)
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"WORLDCORE_PLAIN":      "maybe",
		"WORLDCORE_WRAP_WIDTH": "wide",
	}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.GameDir = "g"
	require.NoError(t, cfg.Validate())

	cases := map[string]func(c *Config){
		"no game dir":    func(c *Config) { c.GameDir = "" },
		"bad backend":    func(c *Config) { c.SaveBackend = "tape" },
		"sqlite no path": func(c *Config) { c.SaveBackend = BackendSQLite; c.SQLitePath = "" },
		"zero ambush":    func(c *Config) { c.AmbushDelay = "0s" },
		"bad restart":    func(c *Config) { c.RestartDelay = "later" },
		"negative wrap":  func(c *Config) { c.WrapWidth = -1 },
		"bad log level":  func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := cfg
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.LogFile = filepath.Join(t.TempDir(), "wc.log")

	log, closeLog, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.Info("hello")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
