// Command pfcmesh meshes the plasma-facing components of a CAD assembly,
// selects intersection candidates and writes the solver handoff.
package main

import (
	"fmt"
	"os"

	"github.com/chazu/pfcmesh/internal/config"
	"github.com/chazu/pfcmesh/internal/logging"
	"github.com/chazu/pfcmesh/pkg/kernel/sdfx"
	"github.com/chazu/pfcmesh/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pfcmesh",
	Short: "Mesh plasma-facing components for thermal analysis",
	Long: `pfcmesh loads a CAD assembly, meshes the parts of a region of interest
through a resolution-keyed STL cache, reduces the set of parts that may
shadow them and writes the manifest an external thermal solver consumes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "pfcmesh.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cacheCmd.AddCommand(cacheDecodeCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(meshCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(candidatesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newPipeline validates the loaded configuration and builds a pipeline on
// the sdfx kernel.
func newPipeline(reg prometheus.Registerer) (*pipeline.Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k := sdfx.New(logger.Named("kernel"))
	if cfg.Mesh.MaxCells > 0 {
		k.MaxCells = cfg.Mesh.MaxCells
	}
	return pipeline.New(cfg, k, reg, logger), nil
}
