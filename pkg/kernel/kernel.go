// Package kernel defines the abstract CAD kernel boundary.
// Implementations (sdfx, or an external STEP/BREP kernel) provide solid
// modeling, placement and meshing behind this interface. The rest of the
// system only ever sees shapes going in and meshes coming out.
package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Quality selects the meshing algorithm and its bound. Exactly one of
// EdgeLength or the deflection pair is meaningful: a positive EdgeLength
// selects the edge-length bounded mesher, otherwise the deviation bounded
// mesher is used.
type Quality struct {
	EdgeLength        float64 // max triangle edge, mm
	LinearDeflection  float64 // max surface deviation, mm
	AngularDeflection float64 // max angular deviation, radians
}

// UsesEdgeLength reports whether q selects the edge-length mesher.
func (q Quality) UsesEdgeLength() bool {
	return q.EdgeLength > 0
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Place(s Solid, p Placement) Solid

	// Mesh output
	ToMesh(s Solid, q Quality) (*Mesh, error)

	// Mass properties
	CenterOfMass(s Solid) (r3.Vec, error)
}
