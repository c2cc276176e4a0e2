// WorldCore runs point-and-click style interactive fiction written in Lua.
// Usage: worldcore [flags] <game_directory>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/worldcore/cli"
	"github.com/nathoo/worldcore/config"
	"github.com/nathoo/worldcore/engine"
	"github.com/nathoo/worldcore/engine/save"
	"github.com/nathoo/worldcore/loader"
	"github.com/nathoo/worldcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Parse(os.Args[1:], nil, os.Stderr)
	switch {
	case errors.Is(err, config.ErrVersion):
		fmt.Printf("worldcore %s (commit %s, built %s)\n", version, commit, date)
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Usage: worldcore [flags] <game_directory>\n")
		return 2
	}

	log, closeLog, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := play(ctx, cfg, log); err != nil {
		log.WithError(err).Error("worldcore stopped")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func play(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	// Load and compile Lua game content.
	defs, err := loader.Load(cfg.GameDir, log)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}

	eng, err := engine.New(defs, engine.Options{
		Logger:       log,
		Seed:         cfg.Seed,
		AmbushDelay:  cfg.Ambush(),
		RestartDelay: cfg.Restart(),
	})
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	log.WithFields(logrus.Fields{
		"game":    defs.Game.Title,
		"session": eng.SessionID,
		"backend": cfg.SaveBackend,
	}).Info("session started")

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// Script mode: read commands from the file, force plain, echo commands.
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := newCLI(eng, store, cfg)
		c.In = f
		c.EchoInput = true
		return c.Run(ctx)
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if cfg.Plain || !isTerminal() {
		err := newCLI(eng, store, cfg).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return tui.Run(ctx, eng, store, cfg.Trace)
}

func newCLI(eng *engine.Engine, store save.Store, cfg config.Config) *cli.CLI {
	c := cli.New(eng, store)
	c.Trace = cfg.Trace
	c.Wrap = cfg.WrapWidth
	return c
}

func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (save.Store, error) {
	if cfg.SaveBackend == config.BackendSQLite {
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating save dir: %w", err)
			}
		}
		store, err := save.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := save.NewFileStore(cfg.SaveDir, log)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
