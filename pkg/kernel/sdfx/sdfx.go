// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// DefaultMaxCells caps the marching cubes grid along the longest side.
	DefaultMaxCells = 256
	// minMeshCells keeps very coarse resolutions from collapsing thin parts.
	minMeshCells = 8
	// comCells is the grid used to integrate mass properties.
	comCells = 64
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	// MaxCells bounds the marching cubes resolution. Requests that would
	// exceed it are clamped and logged.
	MaxCells int
	logger   *zap.Logger
}

// New returns a new SdfxKernel. A nil logger is replaced by a no-op logger.
func New(logger *zap.Logger) *SdfxKernel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SdfxKernel{MaxCells: DefaultMaxCells, logger: logger}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions and its minimum corner at
// the origin, so a placement base is the corner of the part.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m))
}

// Cylinder creates a cylinder along Z, centred on the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Sphere creates a sphere centred on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Place applies a rigid placement to a solid.
func (k *SdfxKernel) Place(s kernel.Solid, p kernel.Placement) kernel.Solid {
	if p.IsIdentity() {
		return s
	}
	x, y, z := p.EulerZYX()
	rot := sdf.RotateZ(z).Mul(sdf.RotateY(y)).Mul(sdf.RotateX(x))
	m := sdf.Translate3d(v3.Vec{X: p.Base.X, Y: p.Base.Y, Z: p.Base.Z}).Mul(rot)
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// cellsFor converts a mesh quality into a marching cubes cell count along
// the longest side of the solid's bounding box.
//
// Edge length: a marching cubes facet lies inside one cell, so its longest
// edge is at most the cell diagonal; cell = r/sqrt(3).
//
// Deviation: with the smallest half-extent as a curvature radius rho, a
// chord c deviates c^2/(8 rho) from the arc and subtends c/rho radians, so
// cell = min(sqrt(8 rho d), rho * a).
func (k *SdfxKernel) cellsFor(s sdf.SDF3, q kernel.Quality) int {
	bb := s.BoundingBox()
	size := [3]float64{bb.Max.X - bb.Min.X, bb.Max.Y - bb.Min.Y, bb.Max.Z - bb.Min.Z}
	longest := math.Max(size[0], math.Max(size[1], size[2]))
	shortest := math.Min(size[0], math.Min(size[1], size[2]))

	var cell float64
	if q.UsesEdgeLength() {
		cell = q.EdgeLength / math.Sqrt(3)
	} else {
		rho := shortest / 2
		cell = math.Min(math.Sqrt(8*rho*q.LinearDeflection), rho*q.AngularDeflection)
	}
	if cell <= 0 || math.IsNaN(cell) {
		return k.maxCells()
	}

	cells := int(math.Ceil(longest / cell))
	if cells < minMeshCells {
		cells = minMeshCells
	}
	if max := k.maxCells(); cells > max {
		k.logger.Warn("mesh resolution clamped",
			zap.Int("requested_cells", cells),
			zap.Int("max_cells", max),
			zap.Float64("edge_length", q.EdgeLength),
			zap.Float64("linear_deflection", q.LinearDeflection),
			zap.Float64("angular_deflection", q.AngularDeflection),
		)
		cells = max
	}
	return cells
}

func (k *SdfxKernel) maxCells() int {
	if k.MaxCells <= 0 {
		return DefaultMaxCells
	}
	return k.MaxCells
}

// triangles renders a solid with a uniform marching cubes grid.
func triangles(s sdf.SDF3, cells int) []r3.Triangle {
	renderer := render.NewMarchingCubesUniform(cells)
	raw := render.ToTriangles(s, renderer)

	out := make([]r3.Triangle, 0, len(raw))
	for _, tri := range raw {
		var t r3.Triangle
		for j := 0; j < 3; j++ {
			v := tri[j]
			t[j] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
		}
		out = append(out, t)
	}
	return out
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
// Zero-area facets produced at grid corners are dropped.
func (k *SdfxKernel) ToMesh(s kernel.Solid, q kernel.Quality) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)
	cells := k.cellsFor(sdf3, q)

	tris := triangles(sdf3, cells)
	if len(tris) == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no facets at %d cells", cells)
	}

	b := kernel.NewMeshBuilder(len(tris))
	for _, tri := range tris {
		n := tri.Normal()
		l := r3.Norm(n)
		if l == 0 {
			continue
		}
		b.Add(tri, r3.Scale(1/l, n))
	}
	return b.Mesh(), nil
}

// CenterOfMass integrates the centroid of the solid's volume over a coarse
// surface mesh using the divergence theorem. Solids too thin to enclose
// volume at that resolution fall back to their bounding box centre.
func (k *SdfxKernel) CenterOfMass(s kernel.Solid) (r3.Vec, error) {
	sdf3 := unwrap(s)
	tris := triangles(sdf3, comCells)

	var vol float64
	var moment r3.Vec
	for _, t := range tris {
		// Signed volume of the tetrahedron (origin, a, b, c).
		v := r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
		vol += v
		moment = r3.Add(moment, r3.Scale(v/4, r3.Add(r3.Add(t[0], t[1]), t[2])))
	}

	if math.Abs(vol) < 1e-12 {
		bb := sdf3.BoundingBox()
		return r3.Vec{
			X: (bb.Min.X + bb.Max.X) / 2,
			Y: (bb.Min.Y + bb.Max.Y) / 2,
			Z: (bb.Min.Z + bb.Max.Z) / 2,
		}, nil
	}
	return r3.Scale(1/vol, moment), nil
}
