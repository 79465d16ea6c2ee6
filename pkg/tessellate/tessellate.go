// Package tessellate turns document parts into triangle meshes at a
// requested resolution using a geometry kernel. One mesh is produced per
// part, in the part's global frame.
package tessellate

import (
	"fmt"

	"github.com/chazu/pfcmesh/pkg/geometry"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/resolution"
	"go.uber.org/zap"
)

// Mesher meshes parts with a kernel. It never mutates the parts it is given.
type Mesher struct {
	kernel kernel.Kernel
	logger *zap.Logger
}

// New returns a Mesher backed by k.
func New(k kernel.Kernel, logger *zap.Logger) *Mesher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mesher{kernel: k, logger: logger}
}

// Mesh produces the mesh of p at spec. The resolution is validated first,
// so an InvalidResolution error means the kernel was never called.
func (m *Mesher) Mesh(p *geometry.Part, spec resolution.Spec) (*kernel.Mesh, error) {
	if p == nil {
		return nil, fmt.Errorf("tessellate: nil part")
	}
	if spec == nil {
		spec = resolution.DefaultStandard()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	solid := m.kernel.Place(p.Shape, p.Placement)
	mesh, err := m.kernel.ToMesh(solid, spec.Quality())
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for part %q: %w", p.Label, err)
	}
	mesh.PartName = p.Label

	m.logger.Debug("meshed part",
		zap.String("label", p.Label),
		zap.String("resolution", spec.String()),
		zap.Int("facets", mesh.TriangleCount()),
	)
	return mesh, nil
}

// MeshParts meshes every part at spec, in order. It stops at the first
// failure.
func (m *Mesher) MeshParts(parts []*geometry.Part, spec resolution.Spec) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		mesh, err := m.Mesh(p, spec)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
