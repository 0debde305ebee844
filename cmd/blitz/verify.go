package main

import (
	"context"
	"errors"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/blitz/conv"
	"github.com/born-ml/blitz/internal/report"
	"github.com/born-ml/blitz/tensor"
)

var errVerificationFailed = errors.New("verification failed")

func verifyCmd() *cli.Command {
	var tolerance float64

	flags := append([]cli.Flag{}, runFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Float64Flag{
			Name:        "tolerance",
			Usage:       "allowed max abs difference, relative to max(1, |reference|)",
			Value:       1e-3,
			Destination: &tolerance,
		},
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Check that every algorithm agrees with the reference algorithm",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
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
			rep := report.New("verify", cfg.Device, backend.Name(), layout)

			// Direct is the reference where it can run; NHWC falls back to BLAS.
			reference := conv.Direct
			if layout != tensor.NCHW {
				reference = conv.GemmWithBLAS
			}
			all := append([]conv.Algorithm{reference}, algos...)

			for i, layer := range cfg.Layers {
				if err := ctx.Err(); err != nil {
					return err
				}
				p, err := newProblem(layer, layout, all, cfg.Seed+int64(i))
				if err != nil {
					return exitf("%v", err)
				}
				opts := []conv.Option{conv.WithBackend(backend), conv.WithLogger(log), conv.WithInstrumentation(cfg.Instrument)}
				refCtx, err := p.context(reference, opts...)
				if err != nil {
					return exitf("layer %s: %v", layer.Name, err)
				}

				for _, op := range operations {
					if err := p.run(op, refCtx); err != nil {
						return exitf("layer %s: reference %s: %v", layer.Name, reference, err)
					}
					want := append([]float32(nil), p.result(op).AsFloat32()...)
					scale := 1.0
					for _, v := range want {
						scale = max(scale, math.Abs(float64(v)))
					}

					for _, algo := range algos {
						if algo == reference || !p.supports(algo) {
							continue
						}
						actx, err := p.context(algo, opts...)
						if err != nil {
							return exitf("layer %s: %v", layer.Name, err)
						}
						if err := p.run(op, actx); err != nil {
							return exitf("layer %s: %s %s: %v", layer.Name, op, algo, err)
						}

						diff := report.MaxAbsDiff(want, p.result(op).AsFloat32())
						passed := diff <= tolerance*scale
						if math.IsNaN(diff) || math.IsInf(diff, 0) {
							diff = math.MaxFloat64
							passed = false
						}
						rep.Checks = append(rep.Checks, report.Check{
							Layer:      layer.Name,
							Operation:  op.String(),
							Algorithm:  algo.String(),
							Reference:  reference.String(),
							MaxAbsDiff: diff,
							Tolerance:  tolerance * scale,
							Passed:     passed,
						})
						if !passed {
							log.Error("algorithms disagree", "layer", layer.Name, "op", op.String(), "algorithm", algo.String(), "max_abs_diff", diff)
						}
					}
				}
			}

			if err := writeReport(stdout, rep); err != nil {
				return err
			}
			if !rep.Passed() {
				return errVerificationFailed
			}
			return nil
		},
	}
}
