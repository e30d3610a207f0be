package segment

import (
	"math/rand/v2"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/internal/topology"
)

const base = Color(0x808080)

// fan builds n vertices around a hub (vertex 0) as a closed fan, so removing
// any single rim vertex keeps the rest connected.
func fan(t *testing.T, n int) *topology.Graph {
	t.Helper()
	var idx []uint32
	rim := n - 1
	for i := 0; i < rim; i++ {
		a := uint32(1 + i)
		b := uint32(1 + (i+1)%rim)
		idx = append(idx, 0, a, b)
	}
	g, err := topology.Build(idx, n)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

// strip builds a triangle strip over n vertices.
func strip(t *testing.T, n int) *topology.Graph {
	t.Helper()
	var idx []uint32
	for i := 0; i+2 < n; i++ {
		idx = append(idx, uint32(i), uint32(i+1), uint32(i+2))
	}
	g, err := topology.Build(idx, n)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func sortedCopy(s []int) []int {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

func TestSegmentMesh_Empty(t *testing.T) {
	g, _ := topology.Build(nil, 0)
	segs := SegmentMesh(g, nil)
	if segs == nil || len(segs) != 0 {
		t.Errorf("expected empty segment list, got %v", segs)
	}

	labels, colors := NewSegmenter(base, 1).UpdateSegmentColors(segs, 0, nil, nil)
	if len(labels) != 0 || len(colors) != 0 {
		t.Errorf("expected no labels or colors, got %v %v", labels, colors)
	}
}

func TestSegmentMesh_SingleTriangle(t *testing.T) {
	g, _ := topology.Build([]uint32{0, 1, 2}, 3)
	segs := SegmentMesh(g, []uint8{0, 0, 0})

	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if got := sortedCopy(segs[0]); !slices.Equal(got, []int{0, 1, 2}) {
		t.Errorf("segment = %v, want [0 1 2]", got)
	}

	labels, colors := NewSegmenter(base, 1).UpdateSegmentColors(segs, 3, nil, nil)
	if !slices.Equal(labels, []int{1, 1, 1}) {
		t.Errorf("labels = %v, want [1 1 1]", labels)
	}
	if colors[1] != base {
		t.Errorf("largest segment color = %v, want %v", colors[1], base)
	}
}

func TestSegmentMesh_OneEdgeVertex(t *testing.T) {
	g := fan(t, 10)
	labels := make([]uint8, 10)
	labels[4] = 1

	segs := SegmentMesh(g, labels)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if len(segs[0]) != 9 {
		t.Errorf("expected 9 vertices, got %d", len(segs[0]))
	}
	if slices.Contains(segs[0], 4) {
		t.Error("edge vertex must not belong to a segment")
	}
}

func TestSegmentMesh_Partition(t *testing.T) {
	g := strip(t, 20)
	labels := make([]uint8, 20)
	// Two-vertex cuts split the strip into three pieces
	for _, v := range []int{5, 6, 12, 13} {
		labels[v] = 1
	}

	segs := SegmentMesh(g, labels)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %v", len(segs), segs)
	}

	seen := make(map[int]int)
	for _, s := range segs {
		for _, v := range s {
			seen[v]++
		}
	}
	for v := 0; v < 20; v++ {
		want := 1
		if labels[v] == 1 {
			want = 0
		}
		if seen[v] != want {
			t.Errorf("vertex %d appears %d times, want %d", v, seen[v], want)
		}
	}

	// Outer scan is ascending, so segments come out in vertex order
	if segs[0][0] != 0 || segs[1][0] != 7 || segs[2][0] != 14 {
		t.Errorf("unexpected segment seeds: %d %d %d", segs[0][0], segs[1][0], segs[2][0])
	}
}

func TestSegmentMesh_Idempotent(t *testing.T) {
	g := strip(t, 15)
	labels := make([]uint8, 15)
	labels[7], labels[8] = 1, 1

	first := SegmentMesh(g, labels)
	second := SegmentMesh(g, labels)
	if len(first) != len(second) {
		t.Fatalf("segment count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !slices.Equal(first[i], second[i]) {
			t.Errorf("segment %d changed: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestUpdateSegmentColors_LargestGetsBase(t *testing.T) {
	segs := [][]int{{0, 1}, {2, 3, 4}, {5, 6, 7}}
	_, colors := NewSegmenter(base, 7).UpdateSegmentColors(segs, 8, nil, nil)

	if colors[2] != base {
		t.Errorf("first largest segment should get base, got %v", colors[2])
	}
	if colors[1] == base || colors[3] == base {
		t.Error("base color must be reserved for the largest segment")
	}
	if colors[1] == colors[3] {
		t.Error("expected distinct colors for the small segments")
	}
}

func TestUpdateSegmentColors_KeepsIdentity(t *testing.T) {
	g := strip(t, 20)
	labels := make([]uint8, 20)
	labels[5], labels[6] = 1, 1
	s := NewSegmenter(base, 3)

	segs := SegmentMesh(g, labels)
	faceLabels, colors := s.UpdateSegmentColors(segs, 20, nil, nil)
	small := faceLabels[0]
	smallColor := colors[small]
	if smallColor == base {
		t.Fatal("small segment should not use the base color")
	}

	// Add a second cut far away; the first small segment is untouched
	labels[14], labels[15] = 1, 1
	segs = SegmentMesh(g, labels)
	faceLabels, colors = s.UpdateSegmentColors(segs, 20, faceLabels, colors)

	if got := colors[faceLabels[0]]; got != smallColor {
		t.Errorf("segment color changed from %v to %v", smallColor, got)
	}
	if faceLabels[5] != 0 || faceLabels[14] != 0 {
		t.Error("edge vertices must have face label 0")
	}
}

func TestUpdateSegmentColors_ClaimedColorIsNotReused(t *testing.T) {
	s := NewSegmenter(base, 11)

	// Both new small segments were part of previous segment 2
	prevLabels := []int{1, 1, 1, 1, 1, 1, 2, 2, 2, 2}
	prevColors := map[int]Color{1: base, 2: 0x112233}
	segs := [][]int{{0, 1, 2, 3, 4, 5}, {6, 7}, {8, 9}}

	_, colors := s.UpdateSegmentColors(segs, 10, prevLabels, prevColors)
	if colors[2] != 0x112233 {
		t.Errorf("first matching segment should inherit, got %v", colors[2])
	}
	if colors[3] == 0x112233 || colors[3] == base {
		t.Errorf("second segment must get a fresh color, got %v", colors[3])
	}
}

func TestUpdateSegmentColors_TieGoesToSmallerID(t *testing.T) {
	s := NewSegmenter(base, 5)
	prevLabels := []int{1, 1, 1, 1, 1, 1, 3, 3, 2, 2}
	prevColors := map[int]Color{1: base, 2: 0x00aa00, 3: 0x0000aa}
	segs := [][]int{{0, 1, 2, 3, 4, 5}, {6, 7, 8, 9}}

	_, colors := s.UpdateSegmentColors(segs, 10, prevLabels, prevColors)
	if colors[2] != 0x00aa00 {
		t.Errorf("tie should resolve to id 2's color, got %v", colors[2])
	}
}

func TestUpdateSegmentColors_SampleCap(t *testing.T) {
	s := NewSegmenter(base, 9)
	s.SampleSize = 2

	// Only the first two members vote, both for previous id 2
	prevLabels := []int{1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 3, 3, 3}
	prevColors := map[int]Color{1: base, 2: 0x00aa00, 3: 0x0000aa}
	segs := [][]int{{0, 1, 2, 3, 4, 5, 6, 7}, {8, 9, 10, 11, 12}}

	_, colors := s.UpdateSegmentColors(segs, 13, prevLabels, prevColors)
	if colors[2] != 0x00aa00 {
		t.Errorf("capped sample should pick id 2, got %v", colors[2])
	}
}

func TestRegenerateColors(t *testing.T) {
	s := NewSegmenter(base, 21)
	segs := [][]int{{0}, {1, 2, 3}, {4, 5}}

	colors := s.RegenerateColors(segs)
	if len(colors) != 3 {
		t.Fatalf("expected 3 colors, got %d", len(colors))
	}
	if colors[2] != base {
		t.Errorf("largest segment should keep base, got %v", colors[2])
	}
	if colors[1] == base || colors[3] == base || colors[1] == colors[3] {
		t.Errorf("expected distinct non-base colors, got %v", colors)
	}
}

func TestSeededSegmenterIsReproducible(t *testing.T) {
	segs := [][]int{{0, 1, 2}, {3}, {4}, {5}}
	a := NewSegmenter(base, 99).RegenerateColors(segs)
	b := NewSegmenter(base, 99).RegenerateColors(segs)
	for id, c := range a {
		if b[id] != c {
			t.Errorf("segment %d: %v vs %v", id, c, b[id])
		}
	}
}

func TestLargestSegment(t *testing.T) {
	if got := LargestSegment(nil); got != -1 {
		t.Errorf("LargestSegment(nil) = %d, want -1", got)
	}
	if got := LargestSegment([][]int{{1}, {2, 3}, {4, 5}}); got != 1 {
		t.Errorf("LargestSegment = %d, want 1", got)
	}
}

// constSource yields the same value on every draw.
type constSource uint64

func (c constSource) Uint64() uint64 { return uint64(c) }

func TestUniqueColorExhausted(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	const taken = Color(0xABCDEF)
	s := NewSegmenter(base, 1)
	// Uint32 takes the high half of the 64-bit draw.
	s.rng = rand.New(constSource(uint64(taken) << 32))

	got := s.uniqueColor(map[Color]struct{}{taken: {}})
	if got != taken {
		t.Errorf("uniqueColor = %v, want duplicate %v", got, taken)
	}
	if got > 0xFFFFFF {
		t.Errorf("color %v exceeds 24 bits", got)
	}

	warned := logs.FilterMessage("could not generate unique segment color")
	if warned.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", warned.Len())
	}
	if n := warned.All()[0].ContextMap()["attempts"]; n != int64(maxColorAttempts) {
		t.Errorf("attempts = %v, want %d", n, maxColorAttempts)
	}
}

func TestUniqueColorAvoidsUsed(t *testing.T) {
	s := NewSegmenter(base, 7)
	used := map[Color]struct{}{}
	for i := 0; i < 50; i++ {
		c := s.uniqueColor(used)
		if _, dup := used[c]; dup {
			t.Fatalf("draw %d returned used color %v", i, c)
		}
		used[c] = struct{}{}
	}
}
