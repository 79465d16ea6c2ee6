package geometry

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/kernel/kerneltest"
	"github.com/chazu/pfcmesh/pkg/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"
)

const assembly = `
;; two divertor tiles and a baffle
(defpart "T001" (box 100 50 10))
(defpart "T002" (box 100 50 10))
(defpart "B001" (box 20 20 20))

(assembly "divertor"
  (place (part "T001") :at (vec3 1000 0 0))
  (place (part "T002") :at (vec3 0 1000 0) :rotate (vec3 0 0 90)))
`

func writeDoc(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func loaded(t *testing.T) (*Repository, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	r := New(kerneltest.New(), zap.New(core))
	_, err := r.Load(writeDoc(t, "asm.zy", assembly))
	require.NoError(t, err)
	return r, logs
}

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.step", FormatSTEP},
		{"a.STP", FormatSTEP},
		{"dir/a.brep", FormatBREP},
		{"a.BRP", FormatBREP},
		{"a.zy", FormatNative},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DetectFormat("a.FCStd")
	assert.ErrorIs(t, err, errdefs.ErrUnsupportedFormat)
	assert.True(t, errdefs.IsFatal(err))
}

func TestLoadKeepsOnlyParts(t *testing.T) {
	r, _ := loaded(t)

	assert.Equal(t, []string{"T001", "T002", "B001"}, r.Labels())
	assert.Len(t, r.Document().Objects, 4, "document keeps the assembly object")

	t1 := r.Part("T001")
	require.NotNil(t, t1)
	assert.True(t, near(t1.Placement.Base, r3.Vec{X: 1000}))
	assert.True(t, r.Part("B001").Placement.IsIdentity(), "unplaced part sits at the origin")
}

func TestLoadErrors(t *testing.T) {
	r := New(kerneltest.New(), nil)

	_, err := r.Load("model.iges")
	assert.ErrorIs(t, err, errdefs.ErrUnsupportedFormat)

	_, err = r.Load("model.step")
	assert.ErrorIs(t, err, errdefs.ErrGeometryLoad, "no STEP reader is registered")

	_, err = r.Load(filepath.Join(t.TempDir(), "missing.zy"))
	assert.ErrorIs(t, err, errdefs.ErrGeometryLoad)

	_, err = r.Load(writeDoc(t, "bad.zy", `(defpart "T001" (box 1 1`))
	assert.ErrorIs(t, err, errdefs.ErrGeometryLoad)

	twice := `
(defpart "T001" (box 1 1 1))
(assembly "a" (place (part "T001")) (place (part "T001") :at (vec3 5 0 0)))
`
	_, err = r.Load(writeDoc(t, "twice.zy", twice))
	assert.ErrorIs(t, err, errdefs.ErrGeometryLoad)
	assert.Contains(t, err.Error(), "more than once")
}

type stubReader struct {
	doc *kernel.Document
	err error
}

func (s stubReader) Read(string) (*kernel.Document, error) { return s.doc, s.err }

func TestRegisterReader(t *testing.T) {
	k := kerneltest.New()
	r := New(k, nil)
	r.RegisterReader(FormatSTEP, stubReader{doc: &kernel.Document{Objects: []*kernel.Object{
		{Label: "asm"},
		{Label: "T001", Shape: k.Box(1, 1, 1), IsPart: true},
	}}})

	_, err := r.Load("model.step")
	require.NoError(t, err)
	assert.Equal(t, []string{"T001"}, r.Labels())

	r.RegisterReader(FormatBREP, stubReader{doc: &kernel.Document{Objects: []*kernel.Object{
		{Label: "T001", Shape: k.Box(1, 1, 1), IsPart: true},
		{Label: "T001", Shape: k.Box(1, 1, 1), IsPart: true},
	}}})
	_, err = r.Load("model.brep")
	assert.ErrorIs(t, err, errdefs.ErrGeometryLoad)

	r.RegisterReader(FormatBREP, stubReader{err: errors.New("kernel rejected file")})
	_, err = r.Load("model.brep")
	assert.ErrorIs(t, err, errdefs.ErrGeometryLoad)
	assert.Contains(t, err.Error(), "kernel rejected file")
}

func TestFindPartsByLabel(t *testing.T) {
	r, logs := loaded(t)

	found := r.FindPartsByLabel([]string{"T002", "X999", "T001"})
	assert.Len(t, found, 2)
	assert.Contains(t, found, "T001")
	assert.Contains(t, found, "T002")
	assert.NotContains(t, found, "X999")

	warned := logs.FilterMessage("part not found in CAD document").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "X999", warned[0].ContextMap()["label"])
}

func TestApplyPermutationOnce(t *testing.T) {
	r, _ := loaded(t)
	ctx := run.New()
	ctx.Permute = true

	before := r.Part("T001").Placement
	require.True(t, r.ApplyPermutation(ctx))
	assert.True(t, r.Permuted())

	after := r.Part("T001").Placement
	// +90 about X takes the (1000,0,0) base to itself and local +Y to +Z.
	assert.True(t, near(after.Base, r3.Vec{X: 1000}))
	assert.True(t, near(after.ApplyDirection(r3.Vec{Y: 1}), r3.Vec{Z: 1}))
	assert.True(t, near(after.Apply(r3.Vec{}), Permutation.Apply(before.Apply(r3.Vec{}))))

	// T002 sits at (0,1000,0) and is moved to (0,0,1000).
	assert.True(t, near(r.Part("T002").Placement.Base, r3.Vec{Z: 1000}))

	assert.False(t, r.ApplyPermutation(ctx), "second application must be a no-op")
	assert.True(t, near(r.Part("T002").Placement.Base, r3.Vec{Z: 1000}))
}

func TestApplyPermutationRespectsContext(t *testing.T) {
	r, _ := loaded(t)

	assert.False(t, r.ApplyPermutation(&run.Context{}))
	assert.False(t, r.ApplyPermutation(&run.Context{Permute: true, BYOM: true}))
	assert.False(t, r.Permuted())
	assert.True(t, near(r.Part("T002").Placement.Base, r3.Vec{Y: 1000}))
}

func TestCenterOfMass(t *testing.T) {
	r, _ := loaded(t)

	c, err := r.CenterOfMass(r.Part("T001"))
	require.NoError(t, err)
	assert.True(t, near(c, r3.Vec{X: 1050, Y: 25, Z: 5}), "got %v", c)

	// T002 is rotated 90 about Z: local (50,25,5) -> (-25,50,5), then moved.
	c, err = r.CenterOfMass(r.Part("T002"))
	require.NoError(t, err)
	assert.True(t, near(c, r3.Vec{X: -25, Y: 1050, Z: 5}), "got %v", c)

	ctx := run.New()
	ctx.Permute = true
	r.ApplyPermutation(ctx)
	c, err = r.CenterOfMass(r.Part("T001"))
	require.NoError(t, err)
	assert.True(t, near(c, r3.Vec{X: 1050, Y: -5, Z: 25}), "cache must be invalidated by permutation, got %v", c)
}

func TestStripParts(t *testing.T) {
	r, _ := loaded(t)

	doc := r.StripParts([]string{"T00"})
	require.Len(t, doc.Objects, 2)
	assert.Equal(t, "T001", doc.Objects[0].Label)
	assert.Equal(t, "T002", doc.Objects[1].Label)
	for _, o := range doc.Objects {
		assert.True(t, o.IsPart)
	}
	assert.Equal(t, r.Part("T002").Placement, doc.Objects[1].Placement)

	assert.Empty(t, r.StripParts([]string{"nothing"}).Objects)
}

func TestNestedAssemblyPlacementsCompose(t *testing.T) {
	src := `
(defpart "T001" (box 10 10 10))
(assembly "inner" (place (part "T001") :at (vec3 10 0 0)))
(assembly "outer" (place (part "inner") :at (vec3 0 0 100) :rotate (vec3 0 0 90)))
`
	r := New(kerneltest.New(), nil)
	_, err := r.Load(writeDoc(t, "nested.zy", src))
	require.NoError(t, err)

	p := r.Part("T001").Placement
	// Inner offset (10,0,0) is rotated by the outer placement to (0,10,0).
	assert.True(t, near(p.Base, r3.Vec{Y: 10, Z: 100}), "got %v", p.Base)
	angle := math.Atan2(p.ApplyDirection(r3.Vec{X: 1}).Y, p.ApplyDirection(r3.Vec{X: 1}).X)
	assert.InDelta(t, math.Pi/2, angle, 1e-9)
}

func TestLoadExampleAssembly(t *testing.T) {
	r := New(kerneltest.New(), nil)
	_, err := r.Load(filepath.Join("..", "..", "examples", "assembly.zy"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"T001", "T002", "B001", "G001"}, r.Labels())

	t001 := r.Part("T001")
	require.NotNil(t, t001)
	assert.True(t, near(r3.Vec{X: 1400, Y: -60, Z: -1200}, t001.Placement.Base), "got %v", t001.Placement.Base)
}
