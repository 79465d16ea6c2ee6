package main

import (
	"fmt"

	"github.com/chazu/pfcmesh/pkg/meshcache"
	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the STL cache",
}

var cacheDecodeCmd = &cobra.Command{
	Use:   "decode [file...]",
	Short: "Print the part label and resolution encoded in cache filenames",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCacheDecode,
}

func runCacheDecode(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, name := range args {
		label, spec, err := meshcache.ParseFilename(name)
		if err != nil {
			return err
		}
		switch s := spec.(type) {
		case resolution.EdgeLength:
			fmt.Fprintf(out, "%s\tedge length %g mm\n", label, s.Max)
		case resolution.Standard:
			fmt.Fprintf(out, "%s\tstandard (token %q)\n", label, s.Token)
		}
	}
	return nil
}
