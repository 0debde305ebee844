package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/blitz/conv"
	"github.com/born-ml/blitz/internal/report"
)

func workspaceCmd() *cli.Command {
	return &cli.Command{
		Name:  "workspace",
		Usage: "Print the workspace each layer needs for the selected algorithms",
		Flags: append(runFlags(), loggingFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return exitf("%v", err)
			}
			log := newLogger(cfg)
			algos, _ := cfg.ParsedAlgorithms()

			rep := report.New("workspace", cfg.Device, cfg.Device, cfg.ParsedLayout())
			for _, layer := range cfg.Layers {
				g := layer.Geometry()
				size, err := conv.WorkspaceSize(g, algos...)
				if err != nil {
					return exitf("layer %s: %v", layer.Name, err)
				}
				for _, algo := range algos {
					for _, op := range operations {
						plan, err := conv.PlanWorkspace(op, algo, g)
						if err != nil {
							return exitf("layer %s: %v", layer.Name, err)
						}
						log.Debug("workspace plan", "layer", layer.Name, "op", op.String(), "algorithm", algo.String(),
							"elements", plan.Size(), "regions", len(plan.Regions))
					}
				}
				rep.Workspaces = append(rep.Workspaces, report.WorkspaceSize{
					Layer:    layer.Name,
					Geometry: report.FromGeometry(g),
					Elements: size,
					Bytes:    size * 4,
				})
			}
			return writeReport(stdout, rep)
		},
	}
}
