package graph

import "fmt"

// ---------------------------------------------------------------------------
// Shapes
// ---------------------------------------------------------------------------

// ShapeData is a constructive solid expression. Shapes are values, not
// nodes: a part owns one shape tree.
type ShapeData interface {
	shapeData()
}

// BoxShape is a rectangular solid with its minimum corner at the origin.
type BoxShape struct {
	Size Vec3 `json:"size"`
}

func (BoxShape) shapeData() {}

// CylinderShape is a cylinder along Z centred on the origin.
type CylinderShape struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

func (CylinderShape) shapeData() {}

// SphereShape is a sphere centred on the origin.
type SphereShape struct {
	Radius float64 `json:"radius"`
}

func (SphereShape) shapeData() {}

// BoolOp enumerates constructive solid operations.
type BoolOp int

const (
	OpUnion BoolOp = iota
	OpDifference
	OpIntersection
)

func (op BoolOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("BoolOp(%d)", int(op))
	}
}

// BooleanShape combines two shapes.
type BooleanShape struct {
	Op BoolOp    `json:"op"`
	A  ShapeData `json:"a"`
	B  ShapeData `json:"b"`
}

func (BooleanShape) shapeData() {}

// MovedShape is a shape under a local rotation then translation, used to
// position tools inside a boolean.
type MovedShape struct {
	Shape       ShapeData `json:"shape"`
	Translation Vec3      `json:"translation"`
	Rotation    Vec3      `json:"rotation"` // Euler angles in degrees
}

func (MovedShape) shapeData() {}

// ---------------------------------------------------------------------------
// Node payloads
// ---------------------------------------------------------------------------

// PartData is a labelled solid. Created by the (defpart ...) form.
type PartData struct {
	Shape ShapeData `json:"shape"`
}

func (PartData) nodeData() {}

// TransformData represents a spatial transformation applied to a child node.
// Created by the (place ...) form. Rotation is applied before translation.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// GroupData represents a logical grouping (assembly, subassembly).
// Created by the (assembly ...) form.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
