// Package command holds the entry-point plumbing shared by the CLIs: logging, flags, configuration and the ledger.
package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ohia "github.com/alanbriolat/office-hours-archiver"
	"github.com/alanbriolat/office-hours-archiver/async"
	"github.com/alanbriolat/office-hours-archiver/internal/config"
	"github.com/alanbriolat/office-hours-archiver/internal/ledger"
)

// Transport is the only network access handed to the pipelines. Transfers are bounded by the context alone.
var Transport = &http.Client{}

// Flags common to every command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "read endpoints and paths from TOML `FILE`",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "read credentials from dotenv `FILE` (the process environment wins)",
		},
		&cli.StringFlag{
			Name:  "ledger",
			Usage: "record uploads in bbolt `FILE` (overrides [ledger] path)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log debug messages",
		},
	}
}

// Env is everything an action needs from outside the process, read once at the entry point.
type Env struct {
	Config  *config.Config
	Environ map[string]string
	Ledger  ohia.Ledger
	close   func() error
}

func Load(c *cli.Context) (*Env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	environ, err := config.Environ(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	env := &Env{
		Config:  cfg,
		Environ: environ,
		Ledger:  ohia.NilLedger{},
		close:   func() error { return nil },
	}
	path := cfg.Ledger.Path
	if c.IsSet("ledger") {
		path = c.String("ledger")
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, err
		}
		l, err := ledger.New(path)
		if err != nil {
			return nil, fmt.Errorf("open ledger %s: %w", path, err)
		}
		zap.S().Debugf("Recording uploads in %s", path)
		env.Ledger = l
		env.close = l.Close
	}
	return env, nil
}

func (e *Env) Close() error {
	return e.close()
}

// Main runs app until it finishes or the process is interrupted, and exits non-zero on failure.
func Main(app *cli.App) {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zapConfig.DisableStacktrace = true
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	app.HideHelpCommand = true
	app.Before = func(c *cli.Context) error {
		if c.Bool("verbose") {
			zapConfig.Level.SetLevel(zap.DebugLevel)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result := async.Run(func() error { return app.RunContext(ctx, os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		stop()
		// In-flight requests carry ctx, so the action returns promptly
		err = <-result
	}
	if errors.Is(err, context.Canceled) {
		logger.Error("Interrupted")
		logger.Sync()
		os.Exit(1)
	} else if err != nil {
		logger.Fatal(err.Error())
	}
}
