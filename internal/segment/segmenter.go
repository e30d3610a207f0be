// Package segment partitions the unmarked surface of a mesh into connected
// regions and keeps region colors stable across re-segmentation.
package segment

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/logger"
)

const (
	// DefaultSampleSize caps how many vertices of a new segment vote for
	// the previous segment it continues.
	DefaultSampleSize = 100

	// maxColorAttempts bounds the search for a color not yet used in a pass.
	maxColorAttempts = 100
)

// Adjacency is the neighbor relation segmentation walks over.
type Adjacency interface {
	VertexCount() int
	Neighbors(v int) []int
}

// SegmentMesh returns the connected components of the subgraph induced by
// vertices with edgeLabels[v] == 0. Components are discovered by scanning
// vertices in ascending order; members are listed in BFS order. Vertices
// beyond len(edgeLabels) are treated as unmarked.
func SegmentMesh(g Adjacency, edgeLabels []uint8) [][]int {
	if g == nil {
		return [][]int{}
	}
	n := g.VertexCount()
	isEdge := func(v int) bool {
		return v < len(edgeLabels) && edgeLabels[v] != 0
	}

	visited := make([]bool, n)
	segments := [][]int{}
	var queue []int

	for start := 0; start < n; start++ {
		if visited[start] || isEdge(start) {
			continue
		}

		visited[start] = true
		queue = append(queue[:0], start)
		var members []int

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			members = append(members, v)
			for _, nb := range g.Neighbors(v) {
				if !visited[nb] && !isEdge(nb) {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}

		segments = append(segments, members)
	}

	return segments
}

// LargestSegment returns the index of the first segment of maximum size,
// or -1 if there are no non-empty segments.
func LargestSegment(segments [][]int) int {
	largest, size := -1, 0
	for i, s := range segments {
		if len(s) > size {
			largest, size = i, len(s)
		}
	}
	return largest
}

// Segmenter assigns segment ids and colors. Segment i of a pass gets id i+1;
// id 0 marks edge vertices.
type Segmenter struct {
	// Base is the neutral color of the largest segment. It is never handed
	// to any other segment.
	Base Color

	// SampleSize caps the vertices consulted when matching a new segment
	// to a previous one.
	SampleSize int

	rng *rand.Rand
}

// NewSegmenter creates a segmenter. A zero seed draws the color stream
// from the clock.
func NewSegmenter(base Color, seed uint64) *Segmenter {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Segmenter{
		Base:       base,
		SampleSize: DefaultSampleSize,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// UpdateSegmentColors labels every vertex of the new segmentation and picks
// a color per segment. The largest segment gets Base. Every other segment
// inherits the color of the previous segment most of its sampled vertices
// belonged to, unless that color was already claimed in this pass, in which
// case a fresh one is synthesized.
//
// faceLabels has one entry per vertex of the mesh the segments were computed
// on; vertexCount sizes it.
func (s *Segmenter) UpdateSegmentColors(segments [][]int, vertexCount int, previousFaceLabels []int, previousColors map[int]Color) ([]int, map[int]Color) {
	faceLabels := make([]int, vertexCount)
	faceColors := make(map[int]Color, len(segments))
	used := map[Color]struct{}{s.Base: {}}

	largest := LargestSegment(segments)
	for i, seg := range segments {
		id := i + 1
		for _, v := range seg {
			faceLabels[v] = id
		}

		if i == largest {
			faceColors[id] = s.Base
			continue
		}

		color, ok := s.inherit(seg, previousFaceLabels, previousColors, used)
		if !ok {
			color = s.uniqueColor(used)
		}
		used[color] = struct{}{}
		faceColors[id] = color
	}

	return faceLabels, faceColors
}

// RegenerateColors discards color identity and assigns fresh colors to all
// segments but the largest.
func (s *Segmenter) RegenerateColors(segments [][]int) map[int]Color {
	colors := make(map[int]Color, len(segments))
	used := map[Color]struct{}{s.Base: {}}

	largest := LargestSegment(segments)
	for i := range segments {
		id := i + 1
		if i == largest {
			colors[id] = s.Base
			continue
		}
		c := s.uniqueColor(used)
		used[c] = struct{}{}
		colors[id] = c
	}
	return colors
}

// inherit finds the previous segment id most frequent among the first
// SampleSize vertices of seg. Ties go to the smaller id.
func (s *Segmenter) inherit(seg []int, previousFaceLabels []int, previousColors map[int]Color, used map[Color]struct{}) (Color, bool) {
	if len(previousFaceLabels) == 0 || len(previousColors) == 0 {
		return 0, false
	}

	sample := seg[:min(s.sampleSize(), len(seg))]
	votes := make(map[int]int)
	for _, v := range sample {
		if v < len(previousFaceLabels) && previousFaceLabels[v] != 0 {
			votes[previousFaceLabels[v]]++
		}
	}

	best, bestVotes := 0, 0
	for id, n := range votes {
		if n > bestVotes || (n == bestVotes && id < best) {
			best, bestVotes = id, n
		}
	}
	if bestVotes == 0 {
		return 0, false
	}

	color, ok := previousColors[best]
	if !ok {
		return 0, false
	}
	if _, taken := used[color]; taken {
		return 0, false
	}
	return color, true
}

// uniqueColor draws random colors until one is not in used. After
// maxColorAttempts misses the last draw is accepted as a duplicate.
func (s *Segmenter) uniqueColor(used map[Color]struct{}) Color {
	var c Color
	for attempt := 0; attempt < maxColorAttempts; attempt++ {
		c = Color(s.rng.Uint32() & 0xFFFFFF)
		if _, taken := used[c]; !taken {
			return c
		}
	}
	logger.Warn("could not generate unique segment color",
		zap.Int("attempts", maxColorAttempts), zap.Stringer("color", c))
	return c
}

func (s *Segmenter) sampleSize() int {
	if s.SampleSize <= 0 {
		return DefaultSampleSize
	}
	return s.SampleSize
}
