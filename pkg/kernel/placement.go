package kernel

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Placement is a rigid transform: rotate about the origin, then translate
// by Base. The zero value is the identity.
type Placement struct {
	Base     r3.Vec      `json:"base"`
	Rotation r3.Rotation `json:"rotation"`
}

// Identity returns the identity placement.
func Identity() Placement {
	return Placement{Rotation: r3.Rotation{Real: 1}}
}

// NewPlacement builds a placement from a translation and Euler angles in
// degrees. Rotation is applied X first, then Y, then Z.
func NewPlacement(base r3.Vec, rotXDeg, rotYDeg, rotZDeg float64) Placement {
	rx := r3.NewRotation(rotXDeg*math.Pi/180, r3.Vec{X: 1})
	ry := r3.NewRotation(rotYDeg*math.Pi/180, r3.Vec{Y: 1})
	rz := r3.NewRotation(rotZDeg*math.Pi/180, r3.Vec{Z: 1})
	q := quat.Mul(quat.Number(rz), quat.Mul(quat.Number(ry), quat.Number(rx)))
	return Placement{Base: base, Rotation: r3.Rotation(q)}
}

// rot returns the rotation quaternion, treating the zero value as identity.
func (p Placement) rot() r3.Rotation {
	if p.Rotation == (r3.Rotation{}) {
		return r3.Rotation{Real: 1}
	}
	return p.Rotation
}

// IsIdentity reports whether p leaves every point unchanged.
func (p Placement) IsIdentity() bool {
	return p.Base == (r3.Vec{}) && p.rot() == (r3.Rotation{Real: 1})
}

// Apply transforms point v by p.
func (p Placement) Apply(v r3.Vec) r3.Vec {
	return r3.Add(p.rot().Rotate(v), p.Base)
}

// ApplyDirection rotates direction v by p without translating it.
func (p Placement) ApplyDirection(v r3.Vec) r3.Vec {
	return p.rot().Rotate(v)
}

// Multiply returns the placement that applies other first, then p.
// This matches FreeCAD's Placement.multiply.
func (p Placement) Multiply(other Placement) Placement {
	q := quat.Mul(quat.Number(p.rot()), quat.Number(other.rot()))
	if n := quat.Abs(q); n != 0 && n != 1 {
		q = quat.Scale(1/n, q)
	}
	return Placement{
		Base:     p.Apply(other.Base),
		Rotation: r3.Rotation(q),
	}
}

// EulerZYX decomposes the rotation into angles (radians) such that
// R = Rz(z) * Ry(y) * Rx(x). Backends that only offer axis rotations use it.
func (p Placement) EulerZYX() (x, y, z float64) {
	m := p.rot().Mat()
	r20 := m.At(2, 0)
	if r20 > 1 {
		r20 = 1
	} else if r20 < -1 {
		r20 = -1
	}
	y = -math.Asin(r20)
	if math.Abs(r20) < 1-1e-12 {
		x = math.Atan2(m.At(2, 1), m.At(2, 2))
		z = math.Atan2(m.At(1, 0), m.At(0, 0))
		return x, y, z
	}
	// Gimbal lock: fold everything into z.
	x = 0
	z = math.Atan2(-m.At(0, 1), m.At(1, 1))
	return x, y, z
}
