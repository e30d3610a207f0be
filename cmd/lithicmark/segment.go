package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/internal/segment"
)

var segmentJobs int

var segmentCmd = &cobra.Command{
	Use:   "segment <file.ply>...",
	Short: "Segment annotated meshes by their edge vertices",
	Long: `Split each mesh into connected segments of non-edge vertices and report
segment sizes and colors. Files are processed in parallel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().IntVarP(&segmentJobs, "jobs", "j", runtime.NumCPU(), "Files processed in parallel")
	rootCmd.AddCommand(segmentCmd)
}

// segmentReport is the summary of one file.
type segmentReport struct {
	path    string
	sizes   []int
	colors  []segment.Color
	largest int
}

func runSegment(cmd *cobra.Command, args []string) error {
	reports := make([]segmentReport, len(args))

	var g errgroup.Group
	g.SetLimit(max(segmentJobs, 1))
	for i, path := range args {
		g.Go(func() error {
			st, err := openState(path)
			if err != nil {
				return err
			}
			segs := st.Segments()
			colors := st.FaceColors()
			r := segmentReport{path: path, largest: segment.LargestSegment(segs)}
			for id, s := range segs {
				r.sizes = append(r.sizes, len(s))
				r.colors = append(r.colors, colors[id+1])
			}
			reports[i] = r
			logger.Debug("segmented", zap.String("path", path), zap.Int("segments", len(segs)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range reports {
		fmt.Fprintf(out, "%s: %d segments\n", r.path, len(r.sizes))
		for id, size := range r.sizes {
			mark := ""
			if id == r.largest {
				mark = " (largest)"
			}
			fmt.Fprintf(out, "  %3d  %s  %d vertices%s\n", id+1, r.colors[id], size, mark)
		}
	}
	return nil
}
