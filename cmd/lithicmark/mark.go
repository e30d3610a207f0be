package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/lithicmark/internal/annotation"
	"github.com/Faultbox/lithicmark/internal/history"
)

var (
	markVertices string
	markSnap     bool
	markErase    bool
	markOutput   string
)

var markCmd = &cobra.Command{
	Use:   "mark <file.ply>",
	Short: "Draw or erase edge vertices as one stroke",
	Long: `Apply a stroke through the given vertices. With --snap consecutive
vertices are joined by shortest paths over the mesh, like a dragged pen.`,
	Example: `  lithicmark mark flake.ply -v 12,40,97 --snap -o flake.ply
  lithicmark mark flake.ply -v 40 --erase -o flake.ply`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	markCmd.Flags().StringVarP(&markVertices, "vertices", "v", "", "Comma separated vertex indices")
	markCmd.Flags().BoolVar(&markSnap, "snap", false, "Join vertices with shortest paths")
	markCmd.Flags().BoolVar(&markErase, "erase", false, "Erase instead of draw")
	markCmd.Flags().StringVarP(&markOutput, "output", "o", "", "Write the annotated mesh here")
	markCmd.MarkFlagRequired("vertices")
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	vs, err := parseVertexList(markVertices)
	if err != nil {
		return err
	}

	st, err := openState(args[0])
	if err != nil {
		return err
	}
	if err := checkVertices(st, vs...); err != nil {
		return err
	}

	kind := history.Draw
	if markErase {
		kind = history.Erase
	}

	ed := newEditor(st)
	stroke(ed, kind, vs, markSnap)

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d edge vertices, %d segments\n",
		kind.Description(), st.EdgeIndices().Len(), len(st.Segments()))
	return saveState(st, markOutput)
}

// stroke applies vs as one gesture and closes it.
func stroke(ed *annotation.Editor, kind history.Kind, vs []int, snap bool) bool {
	ed.BeginStroke(kind)
	for _, v := range vs {
		if snap {
			ed.StrokePath(v)
		} else {
			ed.StrokeVertex(v)
		}
	}
	return ed.EndStroke()
}

// checkVertices rejects indices outside the loaded mesh.
func checkVertices(st *annotation.State, vs ...int) error {
	n := st.VertexCount()
	for _, v := range vs {
		if v < 0 || v >= n {
			return fmt.Errorf("vertex %d out of range [0,%d)", v, n)
		}
	}
	return nil
}

// parseVertexList parses "1,5,9" into vertex indices.
func parseVertexList(s string) ([]int, error) {
	var vs []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex %q", f)
		}
		vs = append(vs, v)
	}
	if len(vs) == 0 {
		return nil, fmt.Errorf("no vertices given")
	}
	return vs, nil
}
