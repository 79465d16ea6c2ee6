package main

import (
	"fmt"

	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var meshRes string

var meshCmd = &cobra.Command{
	Use:   "mesh [label...]",
	Short: "Mesh named parts into the STL cache",
	Long: `Loads the CAD document and resolves a mesh for each named part at the
given resolution, writing new meshes to the cache directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMesh,
}

func init() {
	meshCmd.Flags().StringVarP(&meshRes, "resolution", "r", resolution.StandardToken, `Resolution: "standard" or an edge length in mm`)
}

func runMesh(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(nil)
	if err != nil {
		return err
	}
	spec, err := cfg.Mesh.ParseResolution(meshRes)
	if err != nil {
		return err
	}
	rctx := p.NewContext()
	if err := p.LoadGeometry(rctx); err != nil {
		return err
	}
	specs := lo.Times(len(args), func(int) resolution.Spec { return spec })
	g, err := p.MeshGroup(rctx, "mesh", args, specs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range g.Entries {
		if e.Err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", e.Label, e.Err)
			continue
		}
		fmt.Fprintf(out, "%s\t%d facets\t%s\n", e.Label, e.Mesh.TriangleCount(), e.Path)
	}
	return nil
}
