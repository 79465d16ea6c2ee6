// Package kerneltest provides an exact, deterministic kernel.Kernel for
// tests. Every solid is an axis-aligned box (cylinders and spheres use their
// bounding box) under a placement, and ToMesh emits the 12 facets of that box.
package kerneltest

import (
	"fmt"

	"github.com/chazu/pfcmesh/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// Solid is a box spanning Min..Max in local coordinates, placed by P.
type Solid struct {
	Min, Max r3.Vec
	P        kernel.Placement
}

// BoundingBox returns the axis-aligned box of the placed corners.
func (s *Solid) BoundingBox() ([3]float64, [3]float64) {
	c := s.corners()
	lo, hi := c[0], c[0]
	for _, p := range c[1:] {
		lo = r3.Vec{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = r3.Vec{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return [3]float64{lo.X, lo.Y, lo.Z}, [3]float64{hi.X, hi.Y, hi.Z}
}

func (s *Solid) corners() [8]r3.Vec {
	b := r3.Box{Min: s.Min, Max: s.Max}
	var out [8]r3.Vec
	for i, v := range b.Vertices() {
		out[i] = s.P.Apply(v)
	}
	return out
}

// Kernel records how often it was asked to mesh, so tests can assert that
// a cached artifact was reused instead of regenerated.
type Kernel struct {
	MeshCalls   int
	LastQuality kernel.Quality
	// FailMesh makes ToMesh return an error.
	FailMesh bool
}

// New returns a fresh test kernel.
func New() *Kernel {
	return &Kernel{}
}

func unwrap(s kernel.Solid) *Solid {
	return s.(*Solid)
}

// Box creates a box with its minimum corner at the origin.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	return &Solid{Max: r3.Vec{X: x, Y: y, Z: z}}
}

// Cylinder is approximated by its bounding box, centred on the origin.
func (k *Kernel) Cylinder(height, radius float64) kernel.Solid {
	return &Solid{
		Min: r3.Vec{X: -radius, Y: -radius, Z: -height / 2},
		Max: r3.Vec{X: radius, Y: radius, Z: height / 2},
	}
}

// Sphere is approximated by its bounding box.
func (k *Kernel) Sphere(radius float64) kernel.Solid {
	return &Solid{
		Min: r3.Vec{X: -radius, Y: -radius, Z: -radius},
		Max: r3.Vec{X: radius, Y: radius, Z: radius},
	}
}

// Union returns a.
func (k *Kernel) Union(a, _ kernel.Solid) kernel.Solid { return a }

// Difference returns a.
func (k *Kernel) Difference(a, _ kernel.Solid) kernel.Solid { return a }

// Intersection returns a.
func (k *Kernel) Intersection(a, _ kernel.Solid) kernel.Solid { return a }

// Translate moves a solid by (x, y, z).
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return k.Place(s, kernel.NewPlacement(r3.Vec{X: x, Y: y, Z: z}, 0, 0, 0))
}

// Rotate rotates a solid by Euler angles in degrees.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return k.Place(s, kernel.NewPlacement(r3.Vec{}, x, y, z))
}

// Place applies p on top of the solid's existing placement.
func (k *Kernel) Place(s kernel.Solid, p kernel.Placement) kernel.Solid {
	in := unwrap(s)
	return &Solid{Min: in.Min, Max: in.Max, P: p.Multiply(in.P)}
}

// boxFaces lists the 12 outward-wound facets of r3.Box.Vertices ordering.
var boxFaces = [12][3]int{
	{0, 3, 2}, {0, 2, 1}, // z min
	{4, 5, 6}, {4, 6, 7}, // z max
	{0, 1, 5}, {0, 5, 4}, // y min
	{3, 7, 6}, {3, 6, 2}, // y max
	{0, 4, 7}, {0, 7, 3}, // x min
	{1, 2, 6}, {1, 6, 5}, // x max
}

// ToMesh emits the 12 facets of the placed box, unwelded.
func (k *Kernel) ToMesh(s kernel.Solid, q kernel.Quality) (*kernel.Mesh, error) {
	k.MeshCalls++
	k.LastQuality = q
	if k.FailMesh {
		return nil, fmt.Errorf("kerneltest: mesh failure requested")
	}
	c := unwrap(s).corners()
	b := kernel.NewMeshBuilder(len(boxFaces))
	for _, f := range boxFaces {
		tri := r3.Triangle{c[f[0]], c[f[1]], c[f[2]]}
		b.Add(tri, r3.Unit(tri.Normal()))
	}
	return b.Mesh(), nil
}

// CenterOfMass returns the placed box centre.
func (k *Kernel) CenterOfMass(s kernel.Solid) (r3.Vec, error) {
	in := unwrap(s)
	return in.P.Apply(r3.Scale(0.5, r3.Add(in.Min, in.Max))), nil
}

// BoxMesh returns the 12-facet mesh of the axis-aligned box min..max.
func BoxMesh(min, max r3.Vec) *kernel.Mesh {
	m, _ := New().ToMesh(&Solid{Min: min, Max: max}, kernel.Quality{})
	return m
}
