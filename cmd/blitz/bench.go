package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/blitz/conv"
	"github.com/born-ml/blitz/internal/report"
)

func benchCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
	)

	flags := append([]cli.Flag{}, runFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "untimed runs per operation",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "timed runs per operation",
			Value:       3,
			Destination: &benchRuns,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time every operation of every layer under each algorithm",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return exitf("%v", err)
			}
			if cmd.IsSet("warmup") {
				cfg.Warmup = int(warmupRuns)
			}
			if cmd.IsSet("runs") {
				cfg.Runs = int(benchRuns)
			}
			if err := cfg.Validate(); err != nil {
				return exitf("%v", err)
			}
			log := newLogger(cfg)

			backend, release, err := openBackend(cfg)
			if err != nil {
				return exitf("open %s backend: %v", cfg.Device, err)
			}
			defer release()

			algos, _ := cfg.ParsedAlgorithms()
			layout := cfg.ParsedLayout()
			rec := report.NewRecorder()
			rep := report.New("bench", cfg.Device, backend.Name(), layout)

			for i, layer := range cfg.Layers {
				if err := ctx.Err(); err != nil {
					return err
				}
				p, err := newProblem(layer, layout, algos, cfg.Seed+int64(i))
				if err != nil {
					return exitf("%v", err)
				}
				rec.SetLayer(layer.Name)
				log.Info("benchmarking layer", "layer", layer.Name, "workspace", p.workspace.NumElements())

				for _, algo := range algos {
					if !p.supports(algo) {
						log.Warn("skipping algorithm for layout", "layer", layer.Name, "algorithm", algo.String(), "layout", layout.String())
						continue
					}
					warm, err := p.context(algo, conv.WithBackend(backend), conv.WithLogger(log))
					if err != nil {
						return exitf("layer %s: %v", layer.Name, err)
					}
					timed, err := p.context(algo, conv.WithBackend(backend), conv.WithLogger(log),
						conv.WithInstrumentation(true), conv.WithObserver(rec))
					if err != nil {
						return exitf("layer %s: %v", layer.Name, err)
					}

					for _, op := range operations {
						for range cfg.Warmup {
							if err := p.run(op, warm); err != nil {
								return exitf("layer %s: %v", layer.Name, err)
							}
						}
						for range cfg.Runs {
							if err := p.run(op, timed); err != nil {
								return exitf("layer %s: %v", layer.Name, err)
							}
						}
					}
				}
			}

			rep.Timings = rec.Timings()
			return writeReport(stdout, rep)
		},
	}
}
