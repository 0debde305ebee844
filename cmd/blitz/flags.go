package main

import "github.com/urfave/cli/v3"

var (
	configPath string
	device     string
	algorithms []string
	layout     string
	workers    int64
	jsonOutput bool
	logLevel   string
	logFormat  string
	debug      bool
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to a run configuration (YAML)",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "device",
			Usage:       "execution backend (cpu, webgpu)",
			Value:       "cpu",
			Destination: &device,
		},
		&cli.StringSliceFlag{
			Name:        "algorithm",
			Aliases:     []string{"a"},
			Usage:       "algorithms to run (direct, gemm_blas, gemm_fused); repeatable",
			Destination: &algorithms,
		},
		&cli.StringFlag{
			Name:        "layout",
			Usage:       "activation layout (NCHW, NHWC)",
			Value:       "NCHW",
			Destination: &layout,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "CPU worker goroutines (0 = one per CPU)",
			Destination: &workers,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "write the report as JSON",
			Destination: &jsonOutput,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
