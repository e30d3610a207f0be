package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/lithicmark/internal/history"
	"github.com/Faultbox/lithicmark/internal/picking"
)

var (
	pickX, pickY          float32
	pickWidth, pickHeight float32
	pickYaw, pickPitch    float32
	pickMark              bool
	pickOutput            string
)

var pickCmd = &cobra.Command{
	Use:   "pick <file.ply>",
	Short: "Pick the vertex under a pixel of an orbit view",
	Long: `Frame the mesh with an orbit camera, cast a ray through the given pixel and
report the vertex nearest to the hit. With --mark the vertex is drawn as an
edge vertex.`,
	Example: `  lithicmark pick flake.ply --x 400 --y 300 --yaw 0.5 --mark -o flake.ply`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPick,
}

func init() {
	f := pickCmd.Flags()
	f.Float32Var(&pickX, "x", 400, "Pixel column")
	f.Float32Var(&pickY, "y", 300, "Pixel row")
	f.Float32Var(&pickWidth, "width", 800, "Viewport width in pixels")
	f.Float32Var(&pickHeight, "height", 600, "Viewport height in pixels")
	f.Float32Var(&pickYaw, "yaw", 0, "Camera yaw in radians")
	f.Float32Var(&pickPitch, "pitch", 0, "Camera pitch in radians")
	f.BoolVar(&pickMark, "mark", false, "Draw the picked vertex")
	f.StringVarP(&pickOutput, "output", "o", "", "Write the annotated mesh here")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	if pickWidth <= 0 || pickHeight <= 0 {
		return fmt.Errorf("viewport must have positive size, got %vx%v", pickWidth, pickHeight)
	}
	cam := picking.NewOrbitCamera()
	if pickPitch < -cam.MaxPitch || pickPitch > cam.MaxPitch {
		return fmt.Errorf("pitch must be within ±%v", cam.MaxPitch)
	}

	st, err := openState(args[0])
	if err != nil {
		return err
	}
	ed := newEditor(st)

	cam.FitToBounds(st.Mesh().Bounds())
	cam.Yaw, cam.Pitch = pickYaw, pickPitch

	hit := ed.Picker().Pick(cam.Ray(pickX, pickY, pickWidth, pickHeight))
	out := cmd.OutOrStdout()
	if hit.Miss() {
		fmt.Fprintln(out, "no hit")
		return nil
	}
	fmt.Fprintf(out, "vertex %d face %d point (%.4f, %.4f, %.4f) distance %.4f\n",
		hit.Vertex, hit.Face, hit.Point.X, hit.Point.Y, hit.Point.Z, hit.Distance)

	if pickMark {
		ed.BeginStroke(history.Draw)
		ed.StrokeHit(hit, false)
		ed.EndStroke()
		return saveState(st, pickOutput)
	}
	return nil
}
