package annotation

import (
	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/history"
	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/internal/picking"
	"github.com/Faultbox/lithicmark/pkg/math"
)

// DefaultPredictionThreshold is the probability above which a predicted
// label marks an edge vertex.
const DefaultPredictionThreshold = 0.5

// EditorOptions configures editing policy.
type EditorOptions struct {
	AutoSegment bool    // Re-segment after every recorded edit
	BrushRadius float32 // Used when a brush stroke passes radius <= 0
}

// Editor turns pointer-level input into gestures on a State and decides
// when segmentation is refreshed.
type Editor struct {
	state  *State
	opts   EditorOptions
	picker *picking.Picker

	stroking bool
	kind     history.Kind
	last     int // Last vertex of the current stroke, -1 if none
}

// NewEditor creates an editor driving state.
func NewEditor(state *State, opts EditorOptions) *Editor {
	e := &Editor{state: state, opts: opts, last: -1}
	state.AddListener(func(c Change) {
		if c == ChangeMesh {
			e.picker = nil
			e.stroking = false
			e.last = -1
		}
	})
	return e
}

// State returns the edited state.
func (e *Editor) State() *State { return e.state }

// Picker returns a picker over the loaded mesh.
func (e *Editor) Picker() *picking.Picker {
	if e.picker == nil && e.state.HasMesh() {
		e.picker = picking.NewPicker(e.state.mesh)
	}
	return e.picker
}

// SetAutoSegment toggles re-segmentation after edits. Turning it on
// refreshes segments immediately.
func (e *Editor) SetAutoSegment(on bool) {
	e.opts.AutoSegment = on
	if on {
		e.state.UpdateSegments()
	}
}

// Stroking reports whether a stroke is in progress.
func (e *Editor) Stroking() bool { return e.stroking }

// BeginStroke starts a draw or erase stroke, ending any stroke in progress.
func (e *Editor) BeginStroke(kind history.Kind) {
	if e.stroking {
		e.EndStroke()
	}
	e.state.StartDrawOperation(kind)
	e.stroking = true
	e.kind = kind
	e.last = -1
}

func (e *Editor) apply(vs []int) {
	if len(vs) == 0 {
		return
	}
	if e.kind == history.Erase {
		e.state.RemoveEdgeVertices(vs)
	} else {
		e.state.AddEdgeVertices(vs)
	}
}

// StrokeVertex applies the stroke to a single picked vertex. Negative
// vertices are pick misses and are ignored.
func (e *Editor) StrokeVertex(v int) {
	if !e.stroking || v < 0 {
		return
	}
	e.apply([]int{v})
	e.last = v
}

// StrokePath applies the stroke along the shortest path from the previous
// stroke vertex to v.
func (e *Editor) StrokePath(v int) {
	if !e.stroking || v < 0 {
		return
	}
	if e.last < 0 || e.last == v {
		e.StrokeVertex(v)
		return
	}
	e.apply(e.state.ConnectedPath([]int{e.last, v}))
	e.last = v
}

// StrokeHit applies the stroke at a pick result, optionally path-snapped.
func (e *Editor) StrokeHit(hit picking.Hit, snap bool) {
	if hit.Miss() {
		return
	}
	if snap {
		e.StrokePath(hit.Vertex)
	} else {
		e.StrokeVertex(hit.Vertex)
	}
}

// StrokeBrush applies the stroke to every vertex within radius of center.
func (e *Editor) StrokeBrush(center math.Vec3, radius float32) {
	if !e.stroking {
		return
	}
	if radius <= 0 {
		radius = e.opts.BrushRadius
	}
	p := e.Picker()
	if p == nil {
		return
	}
	e.apply(p.VerticesWithinRadius(center, radius))
}

// EndStroke closes the stroke. Reports whether it was recorded.
func (e *Editor) EndStroke() bool {
	if !e.stroking {
		return false
	}
	e.stroking = false
	e.last = -1

	recorded := e.state.FinishDrawOperation()
	if recorded {
		e.refresh()
	}
	return recorded
}

// PointerLeave closes a stroke whose pointer-up will never arrive.
func (e *Editor) PointerLeave() bool {
	return e.EndStroke()
}

func (e *Editor) refresh() {
	if e.opts.AutoSegment {
		e.state.UpdateSegments()
	}
}

// Undo undoes the last action, ending any stroke first.
func (e *Editor) Undo() bool {
	e.EndStroke()
	ok := e.state.Undo()
	if ok {
		e.refresh()
	}
	return ok
}

// Redo redoes the next action.
func (e *Editor) Redo() bool {
	e.EndStroke()
	ok := e.state.Redo()
	if ok {
		e.refresh()
	}
	return ok
}

// JumpTo displays the timeline state at index.
func (e *Editor) JumpTo(index int) bool {
	e.EndStroke()
	ok := e.state.JumpToState(index)
	if ok {
		e.refresh()
	}
	return ok
}

// ApplyPrediction replaces the edge set with the vertices whose predicted
// label is 1 or above threshold, recorded as one model action. Labels past
// the vertex count are ignored. Returns the number of edge vertices set.
func (e *Editor) ApplyPrediction(labels []float64, threshold float64) int {
	e.EndStroke()
	if threshold <= 0 {
		threshold = DefaultPredictionThreshold
	}

	n := e.state.VertexCount()
	if len(labels) > n {
		logger.Warn("prediction has more labels than vertices",
			zap.Int("labels", len(labels)), zap.Int("vertices", n))
	}

	target := history.EdgeSet{}
	for i, l := range labels[:min(len(labels), n)] {
		if l == 1 || l > threshold {
			target.Add(i)
		}
	}

	var remove []int
	for v := range e.state.edges {
		if !target.Has(v) {
			remove = append(remove, v)
		}
	}
	add := target.Sorted()

	e.state.StartDrawOperation(history.Model)
	e.state.RemoveEdgeVertices(remove)
	e.state.AddEdgeVertices(add)
	if e.state.FinishDrawOperation() {
		e.refresh()
	}

	logger.Info("applied model prediction",
		zap.Int("edgeVertices", target.Len()), zap.Int("removed", len(remove)))
	return target.Len()
}
