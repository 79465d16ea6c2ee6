// Package facet computes per-facet normals, centres and areas of meshes in
// solver coordinates, and folds mesh vertices into the run's (R, Z) extent.
package facet

import (
	"math"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/run"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// extentScale converts millimetres to the metres the extent is kept in.
const extentScale = 1000.0

// Metrics holds one entry per facet of a mesh. Centres are permuted and
// scaled; normals and areas are the mesh's stored values.
type Metrics struct {
	Label   string
	Normals []r3.Vec
	Centers []r3.Vec
	Areas   []float64
}

// Len returns the number of facets.
func (m *Metrics) Len() int {
	return len(m.Areas)
}

// TotalArea returns the summed facet area.
func (m *Metrics) TotalArea() float64 {
	var a float64
	for _, v := range m.Areas {
		a += v
	}
	return a
}

// Calculator computes facet metrics for a run.
type Calculator struct {
	logger *zap.Logger
}

// New returns a Calculator.
func New(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger}
}

// ScaleAndPermute maps a CAD point into solver coordinates: (x,y,z) becomes
// (z,x,y) when the run permutes and the meshes are not user supplied, and
// the result is multiplied by the run's unit conversion.
func ScaleAndPermute(ctx *run.Context, v r3.Vec) r3.Vec {
	if ctx.PermuteActive() {
		v = r3.Vec{X: v.Z, Y: v.X, Z: v.Y}
	}
	return r3.Scale(ctx.UnitConvert, v)
}

// Compute returns the metrics of each mesh, aligned with meshes. A nil mesh
// yields a nil entry and a warning. With fold set, every transformed vertex
// widens ctx.Extent.
func (c *Calculator) Compute(ctx *run.Context, meshes []*kernel.Mesh, fold bool) []*Metrics {
	out := make([]*Metrics, len(meshes))
	for i, m := range meshes {
		if m == nil {
			c.logger.Warn("no mesh for object, skipping facet metrics",
				zap.Int("index", i),
				zap.Error(errdefs.MeshNotFound("")),
				zap.Stringer("run", ctx.ID),
			)
			continue
		}
		out[i] = c.one(ctx, m, fold)
	}
	return out
}

func (c *Calculator) one(ctx *run.Context, m *kernel.Mesh, fold bool) *Metrics {
	n := m.TriangleCount()
	res := &Metrics{
		Label:   m.PartName,
		Normals: make([]r3.Vec, n),
		Centers: make([]r3.Vec, n),
		Areas:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f := m.Facet(i)
		var sum r3.Vec
		for _, p := range f.Points {
			q := ScaleAndPermute(ctx, p)
			sum = r3.Add(sum, q)
			if fold {
				ctx.Extent.Widen(math.Hypot(q.X, q.Y)/extentScale, q.Z/extentScale)
			}
		}
		res.Centers[i] = r3.Scale(1.0/3, sum)
		res.Normals[i] = f.Normal
		res.Areas[i] = f.Area
	}
	if fold {
		c.logger.Debug("folded mesh into extent",
			zap.String("label", m.PartName),
			zap.Float64("rmin", ctx.Extent.Rmin),
			zap.Float64("rmax", ctx.Extent.Rmax),
			zap.Float64("zmin", ctx.Extent.Zmin),
			zap.Float64("zmax", ctx.Extent.Zmax),
		)
	}
	return res
}

// Translate applies the run's global translation to m, returning a moved
// copy. m is returned unchanged when no translation component is set.
func (c *Calculator) Translate(ctx *run.Context, m *kernel.Mesh) *kernel.Mesh {
	v, ok := ctx.TranslationVector()
	if !ok || m == nil {
		c.logger.Debug("no global mesh translation")
		return m
	}
	c.logger.Info("applying global mesh translation",
		zap.String("label", m.PartName),
		zap.Float64("x", v.X), zap.Float64("y", v.Y), zap.Float64("z", v.Z),
	)
	return m.Translate(v)
}
