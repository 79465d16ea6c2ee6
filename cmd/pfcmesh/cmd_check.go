package main

import (
	"fmt"

	"github.com/chazu/pfcmesh/pkg/meshcache"
	"github.com/chazu/pfcmesh/pkg/repair"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkWrite string

var checkCmd = &cobra.Command{
	Use:   "check [file.stl]",
	Short: "Check an STL mesh and repair it if it is not watertight",
	Long: `Runs the manifold checks on an STL mesh. A mesh that is not watertight
is repaired once; with --write the repaired mesh is saved. The command
fails if the mesh is still not watertight after repair.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkWrite, "write", "w", "", "Save the repaired mesh to this path")
}

func runCheck(cmd *cobra.Command, args []string) error {
	m, err := meshcache.Load(args[0])
	if err != nil {
		return err
	}
	res, runErr := repair.Run(m, logger.Named("repair"), nil)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "state       %s\n", res.State)
	printReport(cmd, "before", res.Before)
	if res.State != repair.StateHealthy {
		printReport(cmd, "after", res.After)
		fmt.Fprintf(out, "removed     %d degenerate, %d duplicate facets, %d duplicate vertices, %d non-manifold facets\n",
			res.Stats.Degenerate, res.Stats.DuplicateTriangles, res.Stats.DuplicateVertices, res.Stats.NonManifold)
	}

	if checkWrite != "" && res.State == repair.StateRepaired {
		if err := meshcache.Save(checkWrite, res.Mesh); err != nil {
			return err
		}
		logger.Info("wrote repaired mesh", zap.String("path", checkWrite))
	}
	return runErr
}

func printReport(cmd *cobra.Command, name string, r repair.Report) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"%-11s watertight=%t edge-manifold=%t boundary-ok=%t vertex-manifold=%t self-intersecting=%t orientable=%t\n",
		name, r.Watertight, r.EdgeManifold, r.EdgeManifoldBoundary, r.VertexManifold, r.SelfIntersecting, r.Orientable)
}
