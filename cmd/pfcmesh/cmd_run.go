package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/pfcmesh/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var metricsPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline and write the solver manifest",
	Long: `Meshes the ROI table's parts, selects and meshes their intersect
candidates, meshes the gyro sources and writes the solver manifest.
Cached meshes are reused unless mesh.overwrite is set.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&metricsPath, "metrics", "", "Write run counters to this file in Prometheus text format")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	p, err := newPipeline(reg)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, g := range []*pipeline.Group{res.ROI, res.Intersect, res.Gyro} {
		fmt.Fprintf(out, "%-10s %d/%d meshes\n", g.Name, len(g.Resolved()), len(g.Entries))
	}
	fmt.Fprintf(out, "extent     R %.4f..%.4f m, Z %.4f..%.4f m\n",
		res.Run.Extent.Rmin, res.Run.Extent.Rmax, res.Run.Extent.Zmin, res.Run.Extent.Zmax)
	fmt.Fprintf(out, "manifest   %s\n", cfg.Solver.Manifest)

	if metricsPath != "" {
		if err := prometheus.WriteToTextfile(metricsPath, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.Debug("wrote run counters", zap.String("path", metricsPath))
	}
	return nil
}
