package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/lithicmark/internal/segment"
)

var infoCmd = &cobra.Command{
	Use:   "info <file.ply>",
	Short: "Display mesh and annotation statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	st, err := openState(args[0])
	if err != nil {
		return err
	}

	m := st.Mesh()
	g := st.Graph()
	lo, hi := m.Bounds()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "File: %s\n\n", args[0])
	fmt.Fprintln(out, "Mesh:")
	fmt.Fprintf(out, "  Vertices: %d\n", m.VertexCount())
	fmt.Fprintf(out, "  Triangles: %d\n", m.TriangleCount())
	fmt.Fprintf(out, "  Graph edges: %d\n", g.EdgeCount())
	fmt.Fprintf(out, "  Isolated vertices: %d\n", len(g.IsolatedVertices()))
	fmt.Fprintf(out, "  Min: (%.4f, %.4f, %.4f)\n", lo.X, lo.Y, lo.Z)
	fmt.Fprintf(out, "  Max: (%.4f, %.4f, %.4f)\n\n", hi.X, hi.Y, hi.Z)

	segments := st.Segments()
	fmt.Fprintln(out, "Annotation:")
	fmt.Fprintf(out, "  Edge vertices: %d\n", st.EdgeIndices().Len())
	fmt.Fprintf(out, "  Segments: %d\n", len(segments))
	if largest := segment.LargestSegment(segments); largest >= 0 {
		fmt.Fprintf(out, "  Largest segment: %d vertices\n", len(segments[largest]))
	}
	return nil
}
