// Package repair checks triangle meshes for the properties a solver needs
// and applies a fixed sequence of repairs to meshes that lack them.
//
// Topology is taken from vertex indices: an unwelded mesh, where every facet
// owns its three vertices, has only boundary edges until it is welded.
package repair

import (
	"math"
	"sort"

	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

// Report holds the result of checking a mesh. Only Watertight gates
// whether a mesh is healthy.
type Report struct {
	EdgeManifoldBoundary bool // every edge has at most two facets
	EdgeManifold         bool // every edge has exactly two facets
	VertexManifold       bool // the facets around each vertex form one fan
	SelfIntersecting     bool // two facets without a shared vertex cross
	Watertight           bool
	Orientable           bool // facets can be wound consistently across shared edges
}

type edge struct{ a, b uint32 }

func makeEdge(a, b uint32) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// facetEdges returns the three directed edges of facet f.
func facetEdges(m *kernel.Mesh, f int) [3][2]uint32 {
	i := m.Indices[3*f : 3*f+3]
	return [3][2]uint32{{i[0], i[1]}, {i[1], i[2]}, {i[2], i[0]}}
}

// edgeFacets maps every undirected edge to the facets using it.
func edgeFacets(m *kernel.Mesh) map[edge][]int {
	out := make(map[edge][]int, 3*m.TriangleCount()/2)
	for f := 0; f < m.TriangleCount(); f++ {
		for _, e := range facetEdges(m, f) {
			k := makeEdge(e[0], e[1])
			out[k] = append(out[k], f)
		}
	}
	return out
}

// Check computes the report for m without modifying it.
func Check(m *kernel.Mesh) Report {
	var r Report
	if m == nil || m.TriangleCount() == 0 {
		return r
	}
	edges := edgeFacets(m)

	r.EdgeManifoldBoundary = true
	r.EdgeManifold = true
	for _, fs := range edges {
		if len(fs) > 2 {
			r.EdgeManifoldBoundary = false
		}
		if len(fs) != 2 {
			r.EdgeManifold = false
		}
	}
	r.VertexManifold = vertexManifold(m, edges)
	r.Orientable = orientable(m, edges)
	r.SelfIntersecting = selfIntersecting(m)
	r.Watertight = r.EdgeManifold && r.VertexManifold && !r.SelfIntersecting
	return r
}

// vertexManifold reports whether, for every vertex, the facets around it
// are connected through edges that contain the vertex.
func vertexManifold(m *kernel.Mesh, edges map[edge][]int) bool {
	star := make(map[uint32][]int)
	for f := 0; f < m.TriangleCount(); f++ {
		for _, v := range m.Indices[3*f : 3*f+3] {
			star[v] = append(star[v], f)
		}
	}
	for v, fs := range star {
		if len(fs) == 1 {
			continue
		}
		seen := map[int]bool{fs[0]: true}
		queue := []int{fs[0]}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, e := range facetEdges(m, f) {
				if e[0] != v && e[1] != v {
					continue
				}
				for _, g := range edges[makeEdge(e[0], e[1])] {
					if !seen[g] {
						seen[g] = true
						queue = append(queue, g)
					}
				}
			}
		}
		if len(seen) != len(fs) {
			return false
		}
	}
	return true
}

// orientable propagates a flip flag across two-facet edges and reports
// whether some choice of flips makes every edge agree, so a mesh with a few
// inverted facets is still orientable. Two facets agree when they traverse
// the shared edge in opposite directions.
func orientable(m *kernel.Mesh, edges map[edge][]int) bool {
	n := m.TriangleCount()
	flip := make([]int8, n) // 0 unvisited, 1 kept, -1 flipped

	dir := func(f int, e edge) int8 {
		for _, d := range facetEdges(m, f) {
			if d[0] == e.a && d[1] == e.b {
				return 1
			}
		}
		return -1
	}

	for start := 0; start < n; start++ {
		if flip[start] != 0 {
			continue
		}
		flip[start] = 1
		queue := []int{start}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, d := range facetEdges(m, f) {
				e := makeEdge(d[0], d[1])
				fs := edges[e]
				if len(fs) != 2 {
					continue
				}
				g := fs[0]
				if g == f {
					g = fs[1]
				}
				if g == f {
					continue
				}
				// Oriented, f and g must see e in opposite directions.
				want := -dir(f, e) * flip[f] * dir(g, e)
				switch flip[g] {
				case 0:
					flip[g] = want
					queue = append(queue, g)
				case want:
				default:
					return false
				}
			}
		}
	}
	return true
}

// boxTol pads facet bounds so axis-aligned facets have a non-zero extent.
const boxTol = 1e-9

type facetBox struct {
	f    int
	rect rtreego.Rect
}

func (b *facetBox) Bounds() rtreego.Rect { return b.rect }

func triBounds(t r3.Triangle) (rtreego.Rect, error) {
	lo, hi := t[0], t[0]
	for _, p := range t[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return rtreego.NewRectFromPoints(
		rtreego.Point{lo.X - boxTol, lo.Y - boxTol, lo.Z - boxTol},
		rtreego.Point{hi.X + boxTol, hi.Y + boxTol, hi.Z + boxTol},
	)
}

// selfIntersecting finds facet pairs whose bounds overlap with an R-tree,
// then tests each pair that shares no vertex position for a crossing.
func selfIntersecting(m *kernel.Mesh) bool {
	n := m.TriangleCount()
	tris := make([]r3.Triangle, n)
	boxes := make([]*facetBox, n)
	tree := rtreego.NewTree(3, 8, 32)
	for f := 0; f < n; f++ {
		tris[f] = m.Triangle(f)
		rect, err := triBounds(tris[f])
		if err != nil {
			continue
		}
		boxes[f] = &facetBox{f: f, rect: rect}
		tree.Insert(boxes[f])
	}

	for f := 0; f < n; f++ {
		if boxes[f] == nil {
			continue
		}
		for _, s := range tree.SearchIntersect(boxes[f].rect) {
			g := s.(*facetBox).f
			if g <= f || sharesPosition(tris[f], tris[g]) {
				continue
			}
			if trianglesCross(tris[f], tris[g]) {
				return true
			}
		}
	}
	return false
}

func sharesPosition(a, b r3.Triangle) bool {
	for _, p := range a {
		for _, q := range b {
			if p == q {
				return true
			}
		}
	}
	return false
}

// trianglesCross reports whether an edge of either triangle passes through
// the interior of the other. Coplanar contact is not a crossing.
func trianglesCross(a, b r3.Triangle) bool {
	for i := 0; i < 3; i++ {
		if segmentHitsTriangle(a[i], a[(i+1)%3], b) || segmentHitsTriangle(b[i], b[(i+1)%3], a) {
			return true
		}
	}
	return false
}

const hitEps = 1e-9

// segmentHitsTriangle is the Moller-Trumbore test restricted to the segment
// p..q and to the open interior of t.
func segmentHitsTriangle(p, q r3.Vec, t r3.Triangle) bool {
	d := r3.Sub(q, p)
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	h := r3.Cross(d, e2)
	det := r3.Dot(e1, h)
	if math.Abs(det) < hitEps {
		return false
	}
	inv := 1 / det
	s := r3.Sub(p, t[0])
	u := inv * r3.Dot(s, h)
	if u <= hitEps || u >= 1-hitEps {
		return false
	}
	qv := r3.Cross(s, e1)
	v := inv * r3.Dot(d, qv)
	if v <= hitEps || u+v >= 1-hitEps {
		return false
	}
	k := inv * r3.Dot(e2, qv)
	return k > hitEps && k < 1-hitEps
}

// sortedEdges returns the keys of edges in a fixed order.
func sortedEdges(edges map[edge][]int) []edge {
	keys := make([]edge, 0, len(edges))
	for e := range edges {
		keys = append(keys, e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	return keys
}
