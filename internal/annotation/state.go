// Package annotation owns the per-vertex edge labels of a loaded mesh and
// routes every edit through gesture tracking so history stays consistent.
package annotation

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/history"
	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/internal/segment"
	"github.com/Faultbox/lithicmark/internal/topology"
	"github.com/Faultbox/lithicmark/pkg/math"
	"github.com/Faultbox/lithicmark/pkg/mesh"
)

// Default display colors.
const (
	DefaultEdgeColor = segment.Color(0xff9933)
	DefaultBaseColor = segment.Color(0x808080)
)

// Change tells listeners which part of the state changed.
type Change int

const (
	ChangeMesh Change = iota
	ChangeEdges
	ChangeSegments
)

func (c Change) String() string {
	switch c {
	case ChangeMesh:
		return "mesh"
	case ChangeEdges:
		return "edges"
	case ChangeSegments:
		return "segments"
	default:
		return "unknown"
	}
}

// Options configures a State.
type Options struct {
	EdgeColor   segment.Color
	BaseColor   segment.Color
	HistorySize int
	Seed        uint64 // 0 seeds segment colors from the clock
}

// DefaultOptions returns the stock colors and history depth.
func DefaultOptions() Options {
	return Options{
		EdgeColor:   DefaultEdgeColor,
		BaseColor:   DefaultBaseColor,
		HistorySize: history.DefaultMaxSize,
	}
}

// gesture is an edit in progress: its kind and the edge set before it.
type gesture struct {
	kind     history.Kind
	previous history.EdgeSet
}

// State is the annotation of one mesh. It is not safe for concurrent use.
type State struct {
	opts      Options
	session   uuid.UUID
	mesh      *mesh.Mesh
	graph     *topology.Graph
	paths     *topology.PathFinder
	segmenter *segment.Segmenter
	history   *history.Manager

	edgeLabels   []uint8
	edges        history.EdgeSet // vertices with edgeLabels[v] == 1
	faceLabels   []int
	faceColors   map[int]segment.Color
	segments     [][]int
	vertexColors []segment.Color
	showSegments bool

	initial   history.EdgeSet
	open      *gesture
	restoring bool
	listeners []func(Change)
}

// New creates an empty state. A mesh must be set before editing.
func New(opts Options) *State {
	return &State{
		opts:         opts,
		segmenter:    segment.NewSegmenter(opts.BaseColor, opts.Seed),
		history:      history.NewManager(opts.HistorySize),
		edges:        history.EdgeSet{},
		faceColors:   map[int]segment.Color{},
		initial:      history.EdgeSet{},
		showSegments: true,
	}
}

// AddListener registers fn to be called synchronously after each change.
func (s *State) AddListener(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *State) notify(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}

// SetMesh loads m and resets all derived state and history. Empty labels
// mean no prior annotation. The state keeps m's position and index buffers
// but copies the labels.
func (s *State) SetMesh(m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("set mesh: %w", err)
	}
	g, err := topology.Build(m.Indices, m.VertexCount())
	if err != nil {
		return fmt.Errorf("set mesh: %w", err)
	}

	n := m.VertexCount()
	s.session = uuid.New()
	s.mesh = m
	s.graph = g
	s.paths = topology.NewPathFinder(g, m)
	s.edgeLabels = make([]uint8, n)
	s.edges = history.EdgeSet{}
	s.vertexColors = make([]segment.Color, n)
	for v := range n {
		if len(m.Labels) > 0 && m.Labels[v] == 1 {
			s.edgeLabels[v] = 1
			s.edges.Add(v)
			s.vertexColors[v] = s.opts.EdgeColor
		} else {
			s.vertexColors[v] = s.opts.BaseColor
		}
	}

	s.faceLabels = nil
	s.faceColors = map[int]segment.Color{}
	s.segments = nil
	s.open = nil
	s.restoring = false

	s.initial = s.edges.Clone()
	s.history.SetBase(s.initial)
	s.history.Clear()

	if isolated := g.IsolatedVertices(); len(isolated) > 0 {
		logger.Warn("mesh has isolated vertices",
			zap.Int("count", len(isolated)), zap.Ints("first", isolated[:min(10, len(isolated))]))
	}
	logger.Debug("mesh loaded",
		zap.Stringer("session", s.session),
		zap.Int("vertices", n),
		zap.Int("triangles", m.TriangleCount()),
		zap.Int("edgeVertices", s.edges.Len()))

	s.notify(ChangeMesh)
	s.UpdateSegments()
	return nil
}

func (s *State) mustHaveMesh() {
	if s.mesh == nil {
		panic("annotation: no mesh loaded")
	}
}

func (s *State) checkVertex(v int) {
	if v < 0 || v >= len(s.edgeLabels) {
		panic(fmt.Sprintf("annotation: vertex %d out of range [0,%d)", v, len(s.edgeLabels)))
	}
}

func (s *State) checkVertices(vs []int) {
	s.mustHaveMesh()
	for _, v := range vs {
		s.checkVertex(v)
	}
}

// beginImplicit opens a gesture of the given kind unless one is open or a
// restore is running.
func (s *State) beginImplicit(kind history.Kind) {
	if s.open == nil && !s.restoring {
		s.open = &gesture{kind: kind, previous: s.edges.Clone()}
	}
}

func (s *State) mark(v int) {
	s.edgeLabels[v] = 1
	s.edges.Add(v)
	if v < len(s.faceLabels) {
		s.faceLabels[v] = 0
	}
	s.vertexColors[v] = s.opts.EdgeColor
}

func (s *State) unmark(v int) {
	s.edgeLabels[v] = 0
	s.edges.Remove(v)
	s.vertexColors[v] = s.opts.BaseColor
}

// AddEdgeVertex marks v as an edge vertex. Panics if no mesh is loaded or
// v is out of range.
func (s *State) AddEdgeVertex(v int) {
	s.checkVertices([]int{v})
	s.beginImplicit(history.Draw)
	s.mark(v)
	s.notify(ChangeEdges)
}

// AddEdgeVertices marks every vertex in vs. All indices are checked before
// any is applied.
func (s *State) AddEdgeVertices(vs []int) {
	s.checkVertices(vs)
	if len(vs) == 0 {
		return
	}
	s.beginImplicit(history.Draw)
	for _, v := range vs {
		s.mark(v)
	}
	s.notify(ChangeEdges)
}

// RemoveEdgeVertex clears the edge mark of v.
func (s *State) RemoveEdgeVertex(v int) {
	s.checkVertices([]int{v})
	s.beginImplicit(history.Erase)
	s.unmark(v)
	s.notify(ChangeEdges)
}

// RemoveEdgeVertices clears the edge mark of every vertex in vs.
func (s *State) RemoveEdgeVertices(vs []int) {
	s.checkVertices(vs)
	if len(vs) == 0 {
		return
	}
	s.beginImplicit(history.Erase)
	for _, v := range vs {
		s.unmark(v)
	}
	s.notify(ChangeEdges)
}

// StartDrawOperation opens a gesture, finishing any gesture still open.
// Ignored during a restore.
func (s *State) StartDrawOperation(kind history.Kind) {
	s.mustHaveMesh()
	if s.restoring {
		return
	}
	if s.open != nil {
		s.FinishDrawOperation()
	}
	s.open = &gesture{kind: kind, previous: s.edges.Clone()}
}

// FinishDrawOperation closes the open gesture and records it if the edge
// set changed. Reports whether an action was pushed.
func (s *State) FinishDrawOperation() bool {
	g := s.open
	if g == nil {
		return false
	}
	s.open = nil

	if g.previous.Equal(s.edges) {
		return false
	}
	a := history.NewAction(g.kind, g.previous, s.edges.Clone())
	s.history.Push(a)
	logger.Debug("recorded action",
		zap.Stringer("kind", a.Kind),
		zap.Int("before", a.Previous.Len()),
		zap.Int("after", a.Next.Len()))
	return true
}

// HasOpenOperation reports whether a gesture is in progress.
func (s *State) HasOpenOperation() bool {
	return s.open != nil
}

// RestoreEdgeState replaces the edge set with target without recording
// history. An open gesture is discarded.
func (s *State) RestoreEdgeState(target history.EdgeSet) {
	s.mustHaveMesh()
	for v := range target {
		s.checkVertex(v)
	}

	s.open = nil
	s.restoring = true
	defer func() { s.restoring = false }()

	for v := range s.edges {
		s.edgeLabels[v] = 0
		s.vertexColors[v] = s.opts.BaseColor
	}
	s.edges = history.EdgeSet{}
	for v := range target {
		s.mark(v)
	}
	s.notify(ChangeEdges)
}

// Undo reverts the action before the view. An open gesture is recorded
// first. Reports whether anything changed.
func (s *State) Undo() bool {
	if s.mesh == nil {
		return false
	}
	s.FinishDrawOperation()
	a := s.history.Undo()
	if a == nil {
		return false
	}
	s.RestoreEdgeState(a.Previous)
	return true
}

// Redo reapplies the action after the view.
func (s *State) Redo() bool {
	if s.mesh == nil {
		return false
	}
	s.FinishDrawOperation()
	a := s.history.Redo()
	if a == nil {
		return false
	}
	s.RestoreEdgeState(a.Next)
	return true
}

// JumpToState displays the timeline state at index (0 = as loaded) without
// moving entries between the undo and redo stacks.
func (s *State) JumpToState(index int) bool {
	if s.mesh == nil {
		return false
	}
	s.FinishDrawOperation()
	if index == s.history.ViewIndex() {
		return false
	}
	target, ok := s.history.StateAt(index)
	if !ok {
		return false
	}
	s.RestoreEdgeState(target)
	s.history.JumpToViewState(index)
	return true
}

// UpdateSegments recomputes segments from the current labels, carrying
// colors over from the previous segmentation.
func (s *State) UpdateSegments() {
	if s.mesh == nil {
		return
	}
	s.segments = segment.SegmentMesh(s.graph, s.edgeLabels)
	s.faceLabels, s.faceColors = s.segmenter.UpdateSegmentColors(
		s.segments, len(s.edgeLabels), s.faceLabels, s.faceColors)
	s.paintSegments()

	logger.Debug("segments updated", zap.Int("count", len(s.segments)))
	s.notify(ChangeSegments)
}

// RegenerateColors assigns fresh colors to all segments but the largest.
func (s *State) RegenerateColors() {
	if s.mesh == nil {
		return
	}
	s.faceColors = s.segmenter.RegenerateColors(s.segments)
	s.paintSegments()
	s.notify(ChangeSegments)
}

// SetShowSegments toggles between segment colors and the base color for
// unmarked vertices.
func (s *State) SetShowSegments(show bool) {
	s.showSegments = show
	if s.mesh == nil {
		return
	}
	s.paintSegments()
	s.notify(ChangeSegments)
}

func (s *State) paintSegments() {
	for i, seg := range s.segments {
		color := s.opts.BaseColor
		if s.showSegments {
			color = s.faceColors[i+1]
		}
		for _, v := range seg {
			if s.edgeLabels[v] == 0 {
				s.vertexColors[v] = color
			}
		}
	}
}

// InvertNormals flips the winding of every triangle. Adjacency does not
// depend on winding, so the graph, labels and history are kept.
func (s *State) InvertNormals() {
	s.mustHaveMesh()
	s.mesh.InvertWinding()
	s.notify(ChangeMesh)
}

// ShortestPath returns the A* vertex path between a and b, or an empty
// slice if there is none.
func (s *State) ShortestPath(a, b int) []int {
	if s.paths == nil {
		return []int{}
	}
	return s.paths.ShortestPath(a, b)
}

// ConnectedPath fills the gaps between consecutive stroke vertices with
// shortest paths.
func (s *State) ConnectedPath(vertices []int) []int {
	if s.paths == nil {
		return vertices
	}
	return s.paths.ConnectedPath(vertices)
}

// HasMesh reports whether a mesh is loaded.
func (s *State) HasMesh() bool { return s.mesh != nil }

// Session identifies the current mesh load.
func (s *State) Session() uuid.UUID { return s.session }

// VertexCount returns the number of vertices of the loaded mesh.
func (s *State) VertexCount() int { return len(s.edgeLabels) }

// Vertex returns the position of vertex v.
func (s *State) Vertex(v int) math.Vec3 {
	s.mustHaveMesh()
	return s.mesh.Vertex(v)
}

// EdgeLabels returns the live per-vertex labels. Callers must not modify it.
func (s *State) EdgeLabels() []uint8 { return s.edgeLabels }

// Positions returns the vertex positions. Callers must not modify it.
func (s *State) Positions() []float32 {
	if s.mesh == nil {
		return nil
	}
	return s.mesh.Positions
}

// Indices returns the triangle indices. Callers must not modify it.
func (s *State) Indices() []uint32 {
	if s.mesh == nil {
		return nil
	}
	return s.mesh.Indices
}

// Mesh returns a copy of the loaded mesh carrying the current labels.
func (s *State) Mesh() *mesh.Mesh {
	if s.mesh == nil {
		return nil
	}
	m := s.mesh.Clone()
	m.Labels = append([]uint8(nil), s.edgeLabels...)
	return m
}

// EdgeIndices returns a copy of the current edge vertex set.
func (s *State) EdgeIndices() history.EdgeSet { return s.edges.Clone() }

// FaceLabels returns the live segment id of every vertex (0 for edge
// vertices). Callers must not modify it.
func (s *State) FaceLabels() []int { return s.faceLabels }

// FaceColors returns a copy of the segment id to color mapping.
func (s *State) FaceColors() map[int]segment.Color { return maps.Clone(s.faceColors) }

// Segments returns the last computed segments. Callers must not modify
// them.
func (s *State) Segments() [][]int { return s.segments }

// VertexColors returns the live display color of every vertex. Callers
// must not modify it.
func (s *State) VertexColors() []segment.Color { return s.vertexColors }

// ShowSegments reports whether segment colors are displayed.
func (s *State) ShowSegments() bool { return s.showSegments }

// InitialState returns the edge set the mesh was loaded with.
func (s *State) InitialState() history.EdgeSet { return s.initial.Clone() }

// History returns the history manager.
func (s *State) History() *history.Manager { return s.history }

// Graph returns the adjacency graph of the loaded mesh.
func (s *State) Graph() *topology.Graph { return s.graph }

// Options returns the options the state was created with.
func (s *State) Options() Options { return s.opts }
