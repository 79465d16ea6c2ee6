package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Mesh is an indexed triangle mesh.
// Vertices has 3 floats per vertex (x,y,z) in mm, Indices has 3 entries per
// facet. Normals and Areas are per facet and come from the mesh source (the
// kernel, or the normal stored in an STL file); they are not recomputed on
// read so that orientation matches the source convention.
type Mesh struct {
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Normals  []float64 `json:"normals"`  // [nx0,ny0,nz0, ...] one per facet
	Areas    []float64 `json:"areas"`    // one per facet, mm^2
	PartName string    `json:"partName"` // label of the part this came from
}

// Facet is a single triangle with its stored normal and area.
type Facet struct {
	Points [3]r3.Vec
	Normal r3.Vec
	Area   float64
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) r3.Vec {
	return r3.Vec{X: m.Vertices[3*i], Y: m.Vertices[3*i+1], Z: m.Vertices[3*i+2]}
}

// Triangle returns the corner positions of facet i.
func (m *Mesh) Triangle(i int) r3.Triangle {
	return r3.Triangle{
		m.Vertex(int(m.Indices[3*i])),
		m.Vertex(int(m.Indices[3*i+1])),
		m.Vertex(int(m.Indices[3*i+2])),
	}
}

// Facet returns facet i with its stored normal and area.
func (m *Mesh) Facet(i int) Facet {
	f := Facet{Points: m.Triangle(i)}
	if 3*i+2 < len(m.Normals) {
		f.Normal = r3.Vec{X: m.Normals[3*i], Y: m.Normals[3*i+1], Z: m.Normals[3*i+2]}
	}
	if i < len(m.Areas) {
		f.Area = m.Areas[i]
	}
	return f
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices: append([]float64(nil), m.Vertices...),
		Indices:  append([]uint32(nil), m.Indices...),
		Normals:  append([]float64(nil), m.Normals...),
		Areas:    append([]float64(nil), m.Areas...),
		PartName: m.PartName,
	}
}

// Translate returns a copy of m moved by v. Normals and areas are unchanged.
func (m *Mesh) Translate(v r3.Vec) *Mesh {
	out := m.Clone()
	for i := 0; i+2 < len(out.Vertices); i += 3 {
		out.Vertices[i] += v.X
		out.Vertices[i+1] += v.Y
		out.Vertices[i+2] += v.Z
	}
	return out
}

// RecomputeFacetData recalculates every facet normal (unit, right-hand
// winding) and area from vertex positions.
func (m *Mesh) RecomputeFacetData() {
	n := m.TriangleCount()
	m.Normals = make([]float64, 0, 3*n)
	m.Areas = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		tri := m.Triangle(i)
		nv := tri.Normal()
		if l := r3.Norm(nv); l > 0 {
			nv = r3.Scale(1/l, nv)
		}
		m.Normals = append(m.Normals, nv.X, nv.Y, nv.Z)
		m.Areas = append(m.Areas, tri.Area())
	}
}

// MeshBuilder accumulates unwelded facets, three vertices per triangle.
// This is the layout kernels and STL readers emit.
type MeshBuilder struct {
	m Mesh
}

// NewMeshBuilder returns a builder with room for n facets.
func NewMeshBuilder(n int) *MeshBuilder {
	return &MeshBuilder{m: Mesh{
		Vertices: make([]float64, 0, 9*n),
		Indices:  make([]uint32, 0, 3*n),
		Normals:  make([]float64, 0, 3*n),
		Areas:    make([]float64, 0, n),
	}}
}

// Add appends a facet with the given normal. The area is computed.
func (b *MeshBuilder) Add(tri r3.Triangle, normal r3.Vec) {
	base := uint32(len(b.m.Vertices) / 3)
	for _, p := range tri {
		b.m.Vertices = append(b.m.Vertices, p.X, p.Y, p.Z)
	}
	b.m.Indices = append(b.m.Indices, base, base+1, base+2)
	b.m.Normals = append(b.m.Normals, normal.X, normal.Y, normal.Z)
	b.m.Areas = append(b.m.Areas, tri.Area())
}

// Mesh returns the built mesh.
func (b *MeshBuilder) Mesh() *Mesh {
	m := b.m
	return &m
}
