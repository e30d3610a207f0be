package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Faultbox/lithicmark/internal/history"
	"github.com/Faultbox/lithicmark/internal/topology"
)

var (
	pathMark   bool
	pathOutput string
)

var pathCmd = &cobra.Command{
	Use:   "path <file.ply> <from> <to>",
	Short: "Find the shortest vertex path between two vertices",
	Args:  cobra.ExactArgs(3),
	RunE:  runPath,
}

func init() {
	pathCmd.Flags().BoolVar(&pathMark, "mark", false, "Mark the path as edge vertices")
	pathCmd.Flags().StringVarP(&pathOutput, "output", "o", "", "Write the annotated mesh here")
	rootCmd.AddCommand(pathCmd)
}

func runPath(cmd *cobra.Command, args []string) error {
	from, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid start vertex %q", args[1])
	}
	to, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid end vertex %q", args[2])
	}

	st, err := openState(args[0])
	if err != nil {
		return err
	}
	if err := checkVertices(st, from, to); err != nil {
		return err
	}

	path := st.ShortestPath(from, to)
	out := cmd.OutOrStdout()
	if len(path) == 0 {
		fmt.Fprintf(out, "no path between %d and %d\n", from, to)
		return nil
	}

	length := topology.NewPathFinder(st.Graph(), st).PathLength(path)
	fmt.Fprintf(out, "path: %v\n", path)
	fmt.Fprintf(out, "hops: %d  length: %.6f\n", len(path)-1, length)

	if pathMark {
		stroke(newEditor(st), history.Draw, path, false)
		return saveState(st, pathOutput)
	}
	return nil
}
