package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/blitz/backend/cpu"
	"github.com/born-ml/blitz/internal/config"
	"github.com/born-ml/blitz/internal/logger"
	"github.com/born-ml/blitz/internal/report"
	"github.com/born-ml/blitz/tensor"
)

// stdout receives reports.
var stdout io.Writer = os.Stdout

// loadRunConfig reads --config (or the defaults) and applies the flags the
// user set explicitly on top of it.
func loadRunConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFlags overrides config values with flags that were explicitly set.
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("device") {
		cfg.Device = strings.ToLower(device)
	}
	if cmd.IsSet("algorithm") {
		cfg.Algorithms = algorithms
	}
	if cmd.IsSet("layout") {
		cfg.Layout = layout
	}
	if cmd.IsSet("workers") {
		cfg.Parallel.Workers = int(workers)
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = logFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

func newLogger(cfg config.Config) logger.Logger {
	return logger.ForFormat(os.Stderr, cfg.LogFormat, logger.ParseLevel(cfg.LogLevel))
}

// openBackend returns the configured backend and its release function.
func openBackend(cfg config.Config) (tensor.Backend, func(), error) {
	switch cfg.Device {
	case config.DeviceWebGPU:
		return openWebGPU()
	default:
		return cpu.NewWithConfig(cfg.ParallelConfig()), func() {}, nil
	}
}

func writeReport(w io.Writer, rep *report.Report) error {
	if jsonOutput {
		return rep.WriteJSON(w)
	}
	return rep.WriteText(w)
}

func exitf(format string, args ...any) error {
	return fmt.Errorf("error: "+format, args...)
}
