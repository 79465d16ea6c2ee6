package repair

import (
	"fmt"
	"sort"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the position of a mesh in the check and repair sequence.
type State int

const (
	StateLoaded State = iota
	StateChecked
	StateHealthy
	StateNeedsRepair
	StateRepairAttempted
	StateRepaired
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateChecked:
		return "checked"
	case StateHealthy:
		return "healthy"
	case StateNeedsRepair:
		return "needs-repair"
	case StateRepairAttempted:
		return "repair-attempted"
	case StateRepaired:
		return "repaired"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts what each repair step removed.
type Stats struct {
	Degenerate         int
	DuplicateTriangles int
	DuplicateVertices  int
	NonManifold        int
}

// Session carries one mesh through check and repair. It works on its own
// copy; the mesh passed to New is never modified.
type Session struct {
	mesh   *kernel.Mesh
	state  State
	report Report
	stats  Stats
	logger *zap.Logger
}

// New starts a session in StateLoaded.
func New(m *kernel.Mesh, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{mesh: m.Clone(), logger: logger}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Mesh returns the session's current mesh.
func (s *Session) Mesh() *kernel.Mesh { return s.mesh }

// Report returns the most recent check.
func (s *Session) Report() Report { return s.report }

// Stats returns what Repair removed.
func (s *Session) Stats() Stats { return s.stats }

// Check inspects the mesh and moves the session to Healthy or NeedsRepair.
// It may only be called once, from StateLoaded.
func (s *Session) Check() (Report, error) {
	if s.state != StateLoaded {
		return s.report, fmt.Errorf("repair: check from state %s", s.state)
	}
	s.state = StateChecked
	s.report = Check(s.mesh)
	if s.report.Watertight {
		s.state = StateHealthy
	} else {
		s.state = StateNeedsRepair
	}
	s.logger.Debug("checked mesh",
		zap.String("label", s.mesh.PartName),
		zap.Stringer("state", s.state),
		zap.Bool("edge_manifold", s.report.EdgeManifold),
		zap.Bool("vertex_manifold", s.report.VertexManifold),
		zap.Bool("self_intersecting", s.report.SelfIntersecting),
		zap.Bool("orientable", s.report.Orientable),
	)
	return s.report, nil
}

// Repair runs every repair step once, in order, then re-checks. It may only
// be called from StateNeedsRepair and ends in Repaired or Failed.
func (s *Session) Repair() (Report, error) {
	if s.state != StateNeedsRepair {
		return s.report, fmt.Errorf("repair: repair from state %s", s.state)
	}
	s.state = StateRepairAttempted

	m := s.mesh
	m, s.stats.Degenerate = removeDegenerate(m)
	m, s.stats.DuplicateTriangles = removeDuplicateTriangles(m)
	m, s.stats.DuplicateVertices = removeDuplicateVertices(m)
	m, s.stats.NonManifold = removeNonManifoldEdges(m)
	m.RecomputeFacetData()
	s.mesh = m

	s.report = Check(m)
	if s.report.Watertight {
		s.state = StateRepaired
	} else {
		s.state = StateFailed
	}
	s.logger.Info("repaired mesh",
		zap.String("label", m.PartName),
		zap.Stringer("state", s.state),
		zap.Int("degenerate", s.stats.Degenerate),
		zap.Int("duplicate_triangles", s.stats.DuplicateTriangles),
		zap.Int("duplicate_vertices", s.stats.DuplicateVertices),
		zap.Int("non_manifold", s.stats.NonManifold),
	)
	return s.report, nil
}

// Result is the outcome of Run.
type Result struct {
	State  State
	Mesh   *kernel.Mesh
	Before Report
	After  Report
	Stats  Stats
}

// Run checks m and repairs it once if needed. A mesh that is still not
// watertight returns its result along with a RepairFailed error.
func Run(m *kernel.Mesh, logger *zap.Logger, metrics *Metrics) (Result, error) {
	if m == nil {
		return Result{}, errdefs.MeshNotFound("")
	}
	s := New(m, logger)
	before, err := s.Check()
	if err != nil {
		return Result{}, err
	}
	res := Result{State: s.State(), Mesh: s.Mesh(), Before: before, After: before}
	if s.State() == StateHealthy {
		metrics.observe(res.State)
		return res, nil
	}

	after, err := s.Repair()
	if err != nil {
		return res, err
	}
	res = Result{State: s.State(), Mesh: s.Mesh(), Before: before, After: after, Stats: s.Stats()}
	metrics.observe(res.State)
	if res.State == StateFailed {
		return res, errdefs.RepairFailed(m.PartName)
	}
	return res, nil
}

// rebuild returns a mesh with the kept facets of m, sharing m's vertices.
func rebuild(m *kernel.Mesh, keep []bool) *kernel.Mesh {
	out := &kernel.Mesh{Vertices: m.Vertices, PartName: m.PartName}
	for f, k := range keep {
		if !k {
			continue
		}
		out.Indices = append(out.Indices, m.Indices[3*f:3*f+3]...)
		if 3*f+2 < len(m.Normals) {
			out.Normals = append(out.Normals, m.Normals[3*f:3*f+3]...)
		}
		if f < len(m.Areas) {
			out.Areas = append(out.Areas, m.Areas[f])
		}
	}
	return out
}

// areaEps is the area below which a facet counts as degenerate.
const areaEps = 1e-12

// removeDegenerate drops facets with a repeated index or no area.
func removeDegenerate(m *kernel.Mesh) (*kernel.Mesh, int) {
	keep := make([]bool, m.TriangleCount())
	removed := 0
	for f := range keep {
		i := m.Indices[3*f : 3*f+3]
		if i[0] == i[1] || i[1] == i[2] || i[2] == i[0] || m.Triangle(f).Area() <= areaEps {
			removed++
			continue
		}
		keep[f] = true
	}
	return rebuild(m, keep), removed
}

// removeDuplicateTriangles drops facets whose corner positions, in any
// order, match an earlier facet.
func removeDuplicateTriangles(m *kernel.Mesh) (*kernel.Mesh, int) {
	seen := make(map[[3]r3.Vec]bool, m.TriangleCount())
	keep := make([]bool, m.TriangleCount())
	removed := 0
	for f := range keep {
		t := m.Triangle(f)
		key := [3]r3.Vec{t[0], t[1], t[2]}
		sort.Slice(key[:], func(i, j int) bool { return less(key[i], key[j]) })
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		keep[f] = true
	}
	return rebuild(m, keep), removed
}

func less(a, b r3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// removeDuplicateVertices welds vertices with identical coordinates and
// drops vertices no facet uses. It returns how many vertices went away.
func removeDuplicateVertices(m *kernel.Mesh) (*kernel.Mesh, int) {
	index := make(map[r3.Vec]uint32, m.VertexCount())
	out := &kernel.Mesh{
		Indices:  make([]uint32, len(m.Indices)),
		Normals:  m.Normals,
		Areas:    m.Areas,
		PartName: m.PartName,
	}
	for k, old := range m.Indices {
		v := m.Vertex(int(old))
		id, ok := index[v]
		if !ok {
			id = uint32(len(out.Vertices) / 3)
			index[v] = id
			out.Vertices = append(out.Vertices, v.X, v.Y, v.Z)
		}
		out.Indices[k] = id
	}
	return out, m.VertexCount() - out.VertexCount()
}

// removeNonManifoldEdges drops, on every edge shared by more than two
// facets, the smallest facets until two remain.
func removeNonManifoldEdges(m *kernel.Mesh) (*kernel.Mesh, int) {
	edges := edgeFacets(m)
	keep := make([]bool, m.TriangleCount())
	for f := range keep {
		keep[f] = true
	}
	removed := 0
	for _, e := range sortedEdges(edges) {
		var live []int
		for _, f := range edges[e] {
			if keep[f] {
				live = append(live, f)
			}
		}
		if len(live) <= 2 {
			continue
		}
		sort.SliceStable(live, func(i, j int) bool {
			return m.Triangle(live[i]).Area() > m.Triangle(live[j]).Area()
		})
		for _, f := range live[2:] {
			keep[f] = false
			removed++
		}
	}
	return rebuild(m, keep), removed
}
