package tessellate_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/geometry"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/kernel/kerneltest"
	"github.com/chazu/pfcmesh/pkg/kernel/sdfx"
	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/chazu/pfcmesh/pkg/tessellate"
	"gonum.org/v1/gonum/spatial/r3"
)

// makeTile creates a box part placed at base.
func makeTile(k kernel.Kernel, label string, base r3.Vec, rz float64) *geometry.Part {
	return &geometry.Part{
		Label:     label,
		Shape:     k.Box(100, 50, 10),
		Placement: kernel.NewPlacement(base, 0, 0, rz),
	}
}

func meshBounds(m *kernel.Mesh) (lo, hi r3.Vec) {
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestMeshAppliesPlacement(t *testing.T) {
	k := kerneltest.New()
	m := tessellate.New(k, nil)
	p := makeTile(k, "T001", r3.Vec{X: 1000, Z: 200}, 0)

	mesh, err := m.Mesh(p, resolution.EdgeLength{Max: 5})
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}
	if mesh.PartName != "T001" {
		t.Errorf("PartName = %q, want T001", mesh.PartName)
	}
	lo, hi := meshBounds(mesh)
	if !near(lo, r3.Vec{X: 1000, Z: 200}) || !near(hi, r3.Vec{X: 1100, Y: 50, Z: 210}) {
		t.Errorf("bounds = %v..%v, want (1000,0,200)..(1100,50,210)", lo, hi)
	}
	if p.Placement.Base != (r3.Vec{X: 1000, Z: 200}) {
		t.Error("part placement was mutated")
	}
}

func TestMeshPassesQuality(t *testing.T) {
	tests := []struct {
		name string
		spec resolution.Spec
		want kernel.Quality
	}{
		{"edge length", resolution.EdgeLength{Max: 2.5}, kernel.Quality{EdgeLength: 2.5}},
		{"standard", resolution.DefaultStandard(), kernel.Quality{LinearDeflection: 0.1, AngularDeflection: 0.523599}},
		{"fine", resolution.Fine(), kernel.Quality{LinearDeflection: 0.01, AngularDeflection: 0.0523599}},
		{"nil defaults to standard", nil, kernel.Quality{LinearDeflection: 0.1, AngularDeflection: 0.523599}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := kerneltest.New()
			if _, err := tessellate.New(k, nil).Mesh(makeTile(k, "T001", r3.Vec{}, 0), tt.spec); err != nil {
				t.Fatalf("Mesh failed: %v", err)
			}
			if k.LastQuality != tt.want {
				t.Errorf("quality = %+v, want %+v", k.LastQuality, tt.want)
			}
		})
	}
}

func TestMeshInvalidResolution(t *testing.T) {
	specs := []resolution.Spec{
		resolution.EdgeLength{Max: 0},
		resolution.EdgeLength{Max: -3},
		resolution.EdgeLength{Max: math.NaN()},
		resolution.EdgeLength{Max: math.Inf(1)},
		resolution.Standard{SurfaceDeviation: 0, AngularDeviation: 0.5},
		resolution.Standard{SurfaceDeviation: 0.1, AngularDeviation: -1},
	}
	for _, spec := range specs {
		t.Run(spec.String(), func(t *testing.T) {
			k := kerneltest.New()
			_, err := tessellate.New(k, nil).Mesh(makeTile(k, "T001", r3.Vec{}, 0), spec)
			if !errors.Is(err, errdefs.ErrInvalidResolution) {
				t.Fatalf("err = %v, want InvalidResolution", err)
			}
			if k.MeshCalls != 0 {
				t.Errorf("kernel meshed %d times for an invalid resolution", k.MeshCalls)
			}
		})
	}
}

func TestMeshKernelFailure(t *testing.T) {
	k := kerneltest.New()
	k.FailMesh = true
	_, err := tessellate.New(k, nil).Mesh(makeTile(k, "T009", r3.Vec{}, 0), resolution.DefaultStandard())
	if err == nil {
		t.Fatal("expected an error from a failing kernel")
	}
	if errdefs.KindOf(err) != errdefs.KindUnknown {
		t.Errorf("kernel failure should not be classified, got %v", errdefs.KindOf(err))
	}
}

func TestMeshParts(t *testing.T) {
	k := kerneltest.New()
	m := tessellate.New(k, nil)
	parts := []*geometry.Part{
		makeTile(k, "T001", r3.Vec{}, 0),
		makeTile(k, "T002", r3.Vec{Y: 500}, 90),
		makeTile(k, "T003", r3.Vec{Z: 500}, 0),
	}
	meshes, err := m.MeshParts(parts, resolution.EdgeLength{Max: 10})
	if err != nil {
		t.Fatalf("MeshParts failed: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("got %d meshes, want 3", len(meshes))
	}
	for i, mesh := range meshes {
		if mesh.PartName != parts[i].Label {
			t.Errorf("mesh %d PartName = %q, want %q", i, mesh.PartName, parts[i].Label)
		}
	}

	// T002 is rotated 90 about Z: it spans X -50..0 and Y 500..600.
	lo, hi := meshBounds(meshes[1])
	const tol = 1e-9
	if math.Abs(lo.X+50) > tol || math.Abs(hi.X) > tol || math.Abs(lo.Y-500) > tol || math.Abs(hi.Y-600) > tol {
		t.Errorf("T002 bounds = %v..%v", lo, hi)
	}

	if _, err := m.MeshParts(parts, resolution.EdgeLength{}); !errors.Is(err, errdefs.ErrInvalidResolution) {
		t.Errorf("err = %v, want InvalidResolution", err)
	}
}

func TestMeshWithSdfx(t *testing.T) {
	k := sdfx.New(nil)
	m := tessellate.New(k, nil)
	p := makeTile(k, "T001", r3.Vec{X: 300}, 0)

	coarse, err := m.Mesh(p, resolution.EdgeLength{Max: 20})
	if err != nil {
		t.Fatalf("coarse Mesh failed: %v", err)
	}
	fine, err := m.Mesh(p, resolution.EdgeLength{Max: 4})
	if err != nil {
		t.Fatalf("fine Mesh failed: %v", err)
	}
	if fine.TriangleCount() <= coarse.TriangleCount() {
		t.Errorf("fine mesh (%d facets) should have more facets than coarse (%d)",
			fine.TriangleCount(), coarse.TriangleCount())
	}
	lo, hi := meshBounds(fine)
	const tol = 1.0
	if math.Abs(lo.X-300) > tol || math.Abs(hi.X-400) > tol {
		t.Errorf("placed X bounds = %f..%f, want ~300..400", lo.X, hi.X)
	}
}
