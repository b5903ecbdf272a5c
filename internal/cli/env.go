package cli

import (
	"context"

	"github.com/capitalx/capitalx/internal/config"
	"github.com/capitalx/capitalx/internal/di"
	"github.com/capitalx/capitalx/pkg/logger"
	"github.com/rs/zerolog"
)

// loadConfig reads the environment and applies the --data-dir override
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.DataDir != "" {
		if err := cfg.UseDataDir(opts.DataDir); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid data directory", err)
		}
	}
	return cfg, nil
}

// newLogger logs to the diagnostic writer: warnings only unless verbose
func newLogger(opts *RootOptions, formatter *OutputFormatter) zerolog.Logger {
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: formatter.GetErrWriter(),
	})
}

// openContainer wires the same services the HTTP server uses
func openContainer(ctx context.Context, opts *RootOptions, formatter *OutputFormatter) (*di.Container, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	formatter.VerboseLog("Using database %s", cfg.DatabasePath())

	container, err := di.Wire(ctx, cfg, newLogger(opts, formatter))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	return container, nil
}
