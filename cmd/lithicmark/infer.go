package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/inference"
	"github.com/Faultbox/lithicmark/internal/logger"
)

var (
	inferOutput    string
	inferThreshold float64
	inferHealth    bool
)

var inferCmd = &cobra.Command{
	Use:   "infer <file.ply>",
	Short: "Replace the edge annotation with a server prediction",
	Long: `Upload the mesh to the inference server, run edge prediction and apply
the predicted labels as one undoable model action.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().StringVarP(&inferOutput, "output", "o", "", "Write the annotated mesh here")
	inferCmd.Flags().Float64Var(&inferThreshold, "threshold", 0, "Label probability threshold (default from config)")
	inferCmd.Flags().BoolVar(&inferHealth, "health", false, "Only check server health")
	rootCmd.AddCommand(inferCmd)
}

// inferenceConfig overlays the configured settings on the server defaults.
func inferenceConfig() inference.Config {
	ic := inference.DefaultConfig()
	if cfg.Inference.NAngles > 0 {
		ic.NAngles = cfg.Inference.NAngles
	}
	if cfg.Inference.Zoom > 0 {
		ic.Zoom = cfg.Inference.Zoom
	}
	ic.EdgeThreshold = cfg.Inference.EdgeThreshold
	return ic
}

func runInfer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := inference.NewClient(cfg.Inference.ServerURL, cfg.Inference.APIKey).
		WithTimeout(cfg.Inference.Timeout)
	if !client.Configured() {
		return fmt.Errorf("%w: set --server and --api-key", inference.ErrNotConfigured)
	}

	out := cmd.OutOrStdout()
	if inferHealth {
		h, err := client.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", client.BaseURL(), h.Status)
		return nil
	}

	return inferFile(ctx, client, args[0], out)
}

func inferFile(ctx context.Context, client *inference.Client, path string, out io.Writer) error {
	st, err := openState(path)
	if err != nil {
		return err
	}

	ic := inferenceConfig()
	res, err := client.Predict(ctx, st.Mesh(), filepath.Base(path), ic)
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	logger.Debug("prediction received", zap.Int("labels", len(res.Labels)))

	threshold := inferThreshold
	if threshold <= 0 {
		threshold = ic.EdgeThreshold
	}
	n := newEditor(st).ApplyPrediction(res.Labels, threshold)

	fmt.Fprintf(out, "%s: %d predicted edge vertices, %d segments\n", path, n, len(st.Segments()))
	return saveState(st, inferOutput)
}
