package engine

import (
	"strings"
	"testing"

	"github.com/chazu/pfcmesh/pkg/graph"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere :radius 10)`,
			expect: `(sphere "__kw_radius" 10)`,
		},
		{
			name:   "multiple keywords",
			input:  `(cylinder :height 20 :radius 5)`,
			expect: `(cylinder "__kw_height" 20 "__kw_radius" 5)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(lower-divertor :at ref)`,
			expect: `(lower_divertor "__kw_at" ref)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 -50 0)`,
			expect: `(vec3 0 -50 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:tile-gap`,
			expect: `"__kw_tile-gap"`,
		},
		{
			name:   "escaped quote keeps string open",
			input:  `(defpart "a \" :b" x)`,
			expect: `(defpart "a \" :b" x)`,
		},
		{
			name:   "raw string preserved",
			input:  "(def s `lower-divertor :at`)",
			expect: "(def s `lower-divertor :at`)",
		},
		{
			name:   "hyphenated label in string preserved",
			input:  `(defpart "T-001" x)`,
			expect: `(defpart "T-001" x)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Part definition tests
// ---------------------------------------------------------------------------

func mustEvaluate(t *testing.T, source string) *graph.DesignGraph {
	t.Helper()
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil graph")
	}
	return g
}

func TestSimpleBoxPart(t *testing.T) {
	g := mustEvaluate(t, `(defpart "T001" (box :size (vec3 100 50 10)))`)

	if g.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", g.NodeCount())
	}
	tile := g.Lookup("T001")
	if tile == nil {
		t.Fatal("expected node labelled 'T001'")
	}
	if tile.Kind != graph.NodePart {
		t.Errorf("expected NodePart, got %s", tile.Kind)
	}
	pd, ok := tile.Data.(graph.PartData)
	if !ok {
		t.Fatalf("expected PartData, got %T", tile.Data)
	}
	bs, ok := pd.Shape.(graph.BoxShape)
	if !ok {
		t.Fatalf("expected BoxShape, got %T", pd.Shape)
	}
	if bs.Size != (graph.Vec3{X: 100, Y: 50, Z: 10}) {
		t.Errorf("box size = %v, want (100, 50, 10)", bs.Size)
	}
}

func TestPositionalBox(t *testing.T) {
	g := mustEvaluate(t, `(defpart "T001" (box 1 2.5 3))`)
	bs := g.Lookup("T001").Data.(graph.PartData).Shape.(graph.BoxShape)
	if bs.Size != (graph.Vec3{X: 1, Y: 2.5, Z: 3}) {
		t.Errorf("box size = %v, want (1, 2.5, 3)", bs.Size)
	}
}

func TestPrimitives(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "pipe" (cylinder :height 200 :radius 15))
(defpart "ball" (sphere :radius 7.5))
`)
	cs := g.Lookup("pipe").Data.(graph.PartData).Shape.(graph.CylinderShape)
	if cs.Height != 200 || cs.Radius != 15 {
		t.Errorf("cylinder = %+v, want height 200 radius 15", cs)
	}
	ss := g.Lookup("ball").Data.(graph.PartData).Shape.(graph.SphereShape)
	if ss.Radius != 7.5 {
		t.Errorf("sphere radius = %f, want 7.5", ss.Radius)
	}
}

func TestBooleanFoldsLeft(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "T002"
  (difference
    (box 100 50 10)
    (move (cylinder :height 20 :radius 5) :at (vec3 25 25 5))
    (move (cylinder :height 20 :radius 5) :at (vec3 75 25 5) :rotate (vec3 0 0 45))))
`)
	shape := g.Lookup("T002").Data.(graph.PartData).Shape

	outer, ok := shape.(graph.BooleanShape)
	if !ok || outer.Op != graph.OpDifference {
		t.Fatalf("outer shape = %#v, want difference", shape)
	}
	inner, ok := outer.A.(graph.BooleanShape)
	if !ok || inner.Op != graph.OpDifference {
		t.Fatalf("left operand = %#v, want nested difference", outer.A)
	}
	if _, ok := inner.A.(graph.BoxShape); !ok {
		t.Errorf("innermost left operand = %T, want BoxShape", inner.A)
	}
	moved, ok := outer.B.(graph.MovedShape)
	if !ok {
		t.Fatalf("right operand = %T, want MovedShape", outer.B)
	}
	if moved.Translation != (graph.Vec3{X: 75, Y: 25, Z: 5}) || moved.Rotation != (graph.Vec3{Z: 45}) {
		t.Errorf("moved = %+v", moved)
	}
}

func TestVariableReference(t *testing.T) {
	g := mustEvaluate(t, `
(def thick 19)
(defpart "side" (box :size (vec3 400 200 thick)))
`)
	bs := g.Lookup("side").Data.(graph.PartData).Shape.(graph.BoxShape)
	if bs.Size.Z != 19 {
		t.Errorf("expected thickness=19 (from variable), got %f", bs.Size.Z)
	}
}

// ---------------------------------------------------------------------------
// Assembly tests
// ---------------------------------------------------------------------------

func TestAssemblyWithPlacement(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "T001" (box 100 50 10))
(defpart "T002" (box 100 50 10))

(assembly "divertor"
  (place (part "T001") :at (vec3 0 0 1000))
  (place (part "T002") :at (vec3 0 0 1000) :rotate (vec3 0 0 30)))
`)

	// 2 parts + 2 transforms + 1 group = 5 nodes
	if g.NodeCount() != 5 {
		t.Fatalf("expected 5 nodes, got %d", g.NodeCount())
	}

	div := g.Lookup("divertor")
	if div == nil {
		t.Fatal("expected node named 'divertor'")
	}
	if div.Kind != graph.NodeGroup {
		t.Errorf("divertor: expected NodeGroup, got %s", div.Kind)
	}
	if len(div.Children) != 2 {
		t.Errorf("divertor: expected 2 children, got %d", len(div.Children))
	}
	if len(g.Roots) != 1 {
		t.Errorf("expected 1 root, got %d", len(g.Roots))
	}

	rotated := 0
	for _, child := range g.Children(div) {
		td, ok := child.Data.(graph.TransformData)
		if !ok {
			t.Fatalf("transform node: expected TransformData, got %T", child.Data)
		}
		if td.Translation == nil || td.Translation.Z != 1000 {
			t.Errorf("transform node: translation = %v, want z=1000", td.Translation)
		}
		if td.Rotation != nil {
			rotated++
			if td.Rotation.Z != 30 {
				t.Errorf("rotation = %v, want z=30", *td.Rotation)
			}
		}
	}
	if rotated != 1 {
		t.Errorf("expected 1 rotated placement, got %d", rotated)
	}
}

func TestSamePartPlacedTwiceGetsDistinctTransforms(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "T001" (box 10 10 10))
(assembly "asm"
  (place (part "T001") :at (vec3 0 0 0))
  (place (part "T001") :at (vec3 100 0 0)))
`)
	div := g.Lookup("asm")
	if len(div.Children) != 2 || div.Children[0] == div.Children[1] {
		t.Errorf("expected two distinct transform children, got %v", div.Children)
	}
}

func TestNestedAssemblyIsNotRoot(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "T001" (box 10 10 10))
(defpart "T002" (box 10 10 10))
(assembly "inner" (place (part "T001")))
(assembly "outer" (part "inner") (place (part "T002") :at (vec3 0 50 0)))
`)
	if len(g.Roots) != 1 || g.Roots[0] != g.Lookup("outer").ID {
		t.Errorf("roots = %v, want only outer", g.Roots)
	}
}

func TestAssemblyAcceptsList(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "T001" (box 10 10 10))
(defpart "T002" (box 10 10 10))
(assembly "asm" (list (place (part "T001")) (place (part "T002"))))
`)
	if n := len(g.Lookup("asm").Children); n != 2 {
		t.Errorf("expected 2 children, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// Error tests
// ---------------------------------------------------------------------------

func TestEvaluationErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"missing part", `(part "nonexistent")`, "nonexistent"},
		{"duplicate label", `(defpart "T001" (box 1 1 1)) (defpart "T001" (box 2 2 2))`, "duplicate label"},
		{"defpart without shape", `(defpart "T001" 5)`, "expected shape"},
		{"box without size", `(defpart "T001" (box))`, "box requires"},
		{"non-positive dimension", `(defpart "T001" (box 0 1 1))`, "box size"},
		{"boolean with one operand", `(defpart "T001" (union (box 1 1 1)))`, "at least two shapes"},
		{"place non-ref", `(place 5)`, "expected node reference"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3 arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if g != nil {
				t.Error("expected nil graph on evaluation error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			found := false
			for _, e := range evalErrs {
				if strings.Contains(e.Message, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("eval errors %v do not mention %q", evalErrs, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Regression tests
// ---------------------------------------------------------------------------

func TestEmptySourceStillWorks(t *testing.T) {
	g := mustEvaluate(t, "")
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	mustEvaluate(t, "(+ 1 2)")
}
