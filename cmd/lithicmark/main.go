// Package main is the lithicmark command line annotator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Faultbox/lithicmark/internal/annotation"
	"github.com/Faultbox/lithicmark/internal/config"
	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/internal/segment"
	"github.com/Faultbox/lithicmark/pkg/formats"
)

// cfg is loaded once per invocation by the root command.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lithicmark",
	Short: "Annotate ridge edges on 3D scans of stone artifacts",
	Long: `lithicmark marks edge vertices on triangle meshes of lithic artifacts,
splits the surface into scar segments bounded by those edges, and can ask a
remote inference server for predicted edges.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		logger.Sugar.Debugf("config: %+v", cfg.Annotation)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(config.Flags())
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stateOptions builds annotation options from the loaded config.
func stateOptions(c *config.Config) (annotation.Options, error) {
	edge, err := config.ParseColor(c.Annotation.EdgeColor)
	if err != nil {
		return annotation.Options{}, err
	}
	base, err := config.ParseColor(c.Annotation.BaseColor)
	if err != nil {
		return annotation.Options{}, err
	}
	return annotation.Options{
		EdgeColor:   segment.Color(edge),
		BaseColor:   segment.Color(base),
		HistorySize: c.Annotation.HistorySize,
		Seed:        c.Annotation.ColorSeed,
	}, nil
}

// openState loads a PLY file into a fresh annotation state.
func openState(path string) (*annotation.State, error) {
	opts, err := stateOptions(cfg)
	if err != nil {
		return nil, err
	}
	m, err := formats.ParsePLYFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	st := annotation.New(opts)
	st.SetShowSegments(cfg.Annotation.ShowSegments)
	if err := st.SetMesh(m); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return st, nil
}

// newEditor wraps st with the configured editing policy.
func newEditor(st *annotation.State) *annotation.Editor {
	return annotation.NewEditor(st, annotation.EditorOptions{
		AutoSegment: cfg.Annotation.AutoSegment,
		BrushRadius: cfg.Annotation.BrushRadius,
	})
}

// saveState writes the annotated mesh, or does nothing when path is empty.
func saveState(st *annotation.State, path string) error {
	if path == "" {
		return nil
	}
	if err := formats.WritePLYFile(path, st.Mesh()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
