package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/internal/segment"
	"github.com/Faultbox/lithicmark/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file.ply>...",
	Short: "Re-segment meshes whenever they change on disk",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	for _, path := range args {
		summarize(out, path)
	}

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Watch(args, func(path string) { summarize(out, path) }); err != nil {
		return err
	}
	fw.Start()
	logger.Info("watching meshes", zap.Strings("files", args), zap.Duration("debounce", cfg.Watch.Debounce))

	<-ctx.Done()
	return nil
}

// summarize reloads path and prints its segmentation. Load failures are
// logged since a file may be caught mid-write.
func summarize(out io.Writer, path string) {
	st, err := openState(path)
	if err != nil {
		logger.Warn("reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	segs := st.Segments()
	largest := 0
	if i := segment.LargestSegment(segs); i >= 0 {
		largest = len(segs[i])
	}
	fmt.Fprintf(out, "%s: %d edge vertices, %d segments, largest %d\n",
		path, st.EdgeIndices().Len(), len(segs), largest)
}
