package meshcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chewxy/math32"
	"github.com/hschendel/stl"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Load reads an ASCII or binary STL file into an unwelded mesh. Facet
// normals are taken from the file; a zero normal is recomputed from the
// winding. PartName is the file's base name without extension.
func Load(path string) (*kernel.Mesh, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshcache: read %s: %w", path, err)
	}
	m, err := fromSolid(solid)
	if err != nil {
		return nil, fmt.Errorf("meshcache: %s: %w", path, err)
	}
	m.PartName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return m, nil
}

func fromSolid(solid *stl.Solid) (*kernel.Mesh, error) {
	if len(solid.Triangles) == 0 {
		return nil, errors.New("no facets")
	}
	b := kernel.NewMeshBuilder(len(solid.Triangles))
	for i, t := range solid.Triangles {
		if !finite(t.Normal) || !finite(t.Vertices[0]) || !finite(t.Vertices[1]) || !finite(t.Vertices[2]) {
			return nil, fmt.Errorf("facet %d has a NaN or infinite coordinate", i)
		}
		tri := r3.Triangle{toVec(t.Vertices[0]), toVec(t.Vertices[1]), toVec(t.Vertices[2])}
		n := toVec(t.Normal)
		if n == (r3.Vec{}) {
			if raw := tri.Normal(); r3.Norm(raw) > 0 {
				n = r3.Unit(raw)
			}
		}
		b.Add(tri, n)
	}
	return b.Mesh(), nil
}

func finite(v stl.Vec3) bool {
	for _, f := range v {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func toVec(v stl.Vec3) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func fromVec(v r3.Vec) stl.Vec3 {
	return stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// binaryHeaderSize is the fixed STL header length. Headers must not start
// with "solid" or readers take the file for ASCII.
const binaryHeaderSize = 80

// toSolid converts m to a binary STL solid named after the part.
func toSolid(m *kernel.Mesh) *stl.Solid {
	header := make([]byte, binaryHeaderSize)
	copy(header, "pfcmesh "+m.PartName)
	solid := &stl.Solid{
		Name:         m.PartName,
		BinaryHeader: header,
		Triangles:    make([]stl.Triangle, m.TriangleCount()),
	}
	for i := range solid.Triangles {
		f := m.Facet(i)
		solid.Triangles[i] = stl.Triangle{
			Normal:   fromVec(f.Normal),
			Vertices: [3]stl.Vec3{fromVec(f.Points[0]), fromVec(f.Points[1]), fromVec(f.Points[2])},
		}
	}
	return solid
}

// Write stores m at path as binary STL, creating directories as needed. An
// existing file is left untouched unless the cache is in overwrite mode.
// It reports whether the file was written.
func (c *Cache) Write(path string, m *kernel.Mesh) (bool, error) {
	if m == nil || m.TriangleCount() == 0 {
		return false, fmt.Errorf("meshcache: refusing to write empty mesh to %s", path)
	}
	if _, err := os.Stat(path); err == nil && !c.Overwrite {
		c.logger.Info("mesh file exists, not overwriting", zap.String("path", path))
		return false, nil
	}
	if err := Save(path, m); err != nil {
		return false, err
	}
	c.metrics.write()
	c.logger.Info("wrote mesh", zap.String("path", path),
		zap.String("label", m.PartName), zap.Int("facets", m.TriangleCount()))
	return true, nil
}

// Save writes m to path as binary STL, replacing any existing file. It is
// used for repaired meshes, which supersede the cached original.
func Save(path string, m *kernel.Mesh) error {
	if m == nil || m.TriangleCount() == 0 {
		return fmt.Errorf("meshcache: refusing to write empty mesh to %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("meshcache: create directory for %s: %w", path, err)
	}
	if err := toSolid(m).WriteFile(path); err != nil {
		return fmt.Errorf("meshcache: write %s: %w", path, err)
	}
	return nil
}
