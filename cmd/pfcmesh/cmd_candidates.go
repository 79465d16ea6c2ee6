package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Print the intersection candidate mask for the ROI",
	Long: `Loads the CAD document and prints, for every ROI part, which intersect
parts lie upstream in the toroidal field and within 500 mm on every axis.
Nothing is meshed.`,
	Args: cobra.NoArgs,
	RunE: runCandidates,
}

func runCandidates(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(nil)
	if err != nil {
		return err
	}
	mask, sources, targets, err := p.Candidates()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source\t%s\n", strings.Join(targets, "\t"))
	for i, s := range sources {
		row := make([]string, len(targets))
		for j := range targets {
			row[j] = "."
			if mask.At(i, j) {
				row[j] = "x"
			}
		}
		fmt.Fprintf(out, "%s\t%s\n", s, strings.Join(row, "\t"))
	}
	fmt.Fprintf(out, "%d of %d targets kept\n", len(mask.Targets()), len(targets))
	return nil
}
