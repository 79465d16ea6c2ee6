package geometry

import (
	"fmt"
	"os"
	"strings"

	"github.com/chazu/pfcmesh/pkg/engine"
	"github.com/chazu/pfcmesh/pkg/graph"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Reader turns a CAD file into a kernel document. Readers for external
// kernels (STEP, BREP) are registered with Repository.RegisterReader.
type Reader interface {
	Read(path string) (*kernel.Document, error)
}

// NativeReader reads .zy assembly documents: it evaluates the source with
// the engine and builds every part's solid through the kernel.
type NativeReader struct {
	kernel kernel.Kernel
	engine *engine.Engine
	logger *zap.Logger
}

// NewNativeReader returns a reader that builds solids with k.
func NewNativeReader(k kernel.Kernel, logger *zap.Logger) *NativeReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeReader{kernel: k, engine: engine.NewEngine(), logger: logger}
}

// Read evaluates the document at path.
func (r *NativeReader) Read(path string) (*kernel.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}
	return r.ReadSource(path, string(src))
}

// ReadSource evaluates document source; path only labels the result.
func (r *NativeReader) ReadSource(path, source string) (*kernel.Document, error) {
	g, evalErrs, err := r.engine.Evaluate(source)
	if err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("native: %s", strings.Join(msgs, "; "))
	}

	for _, w := range graph.Validate(g) {
		if w.Severity == graph.SeverityWarning {
			r.logger.Debug("native document warning", zap.String("path", path), zap.String("finding", w.Message))
		}
	}

	doc := &kernel.Document{Path: path}
	f := &flattener{g: g, k: r.kernel, doc: doc, seen: make(map[string]bool)}
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		if err := f.walk(root, kernel.Identity()); err != nil {
			return nil, fmt.Errorf("native: walking root %s: %w", rootID.Short(), err)
		}
	}

	// Parts defined but never placed sit at the origin.
	for _, n := range g.Parts() {
		if f.seen[n.Name] {
			continue
		}
		if err := f.walk(n, kernel.Identity()); err != nil {
			return nil, fmt.Errorf("native: %w", err)
		}
	}
	return doc, nil
}

// flattener walks the assembly graph, composing placements from the root
// down and emitting one document object per group and part.
type flattener struct {
	g    *graph.DesignGraph
	k    kernel.Kernel
	doc  *kernel.Document
	seen map[string]bool
}

func (f *flattener) walk(n *graph.Node, parent kernel.Placement) error {
	switch n.Kind {
	case graph.NodePart:
		return f.part(n, parent)

	case graph.NodeTransform:
		td, ok := n.Data.(graph.TransformData)
		if !ok {
			return fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		local := placementOf(td)
		for _, child := range f.g.Children(n) {
			if err := f.walk(child, parent.Multiply(local)); err != nil {
				return err
			}
		}
		return nil

	case graph.NodeGroup:
		f.doc.Objects = append(f.doc.Objects, &kernel.Object{Label: n.Name, Placement: parent})
		for _, child := range f.g.Children(n) {
			if err := f.walk(child, parent); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (f *flattener) part(n *graph.Node, placement kernel.Placement) error {
	pd, ok := n.Data.(graph.PartData)
	if !ok {
		return fmt.Errorf("part node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
	if f.seen[n.Name] {
		return fmt.Errorf("part %q is placed more than once", n.Name)
	}
	f.seen[n.Name] = true

	solid, err := buildShape(f.k, pd.Shape)
	if err != nil {
		return fmt.Errorf("part %q: %w", n.Name, err)
	}
	f.doc.Objects = append(f.doc.Objects, &kernel.Object{
		Label:     n.Name,
		Shape:     solid,
		Placement: placement,
		IsPart:    true,
	})
	return nil
}

func placementOf(td graph.TransformData) kernel.Placement {
	var base, rot graph.Vec3
	if td.Translation != nil {
		base = *td.Translation
	}
	if td.Rotation != nil {
		rot = *td.Rotation
	}
	return kernel.NewPlacement(r3.Vec{X: base.X, Y: base.Y, Z: base.Z}, rot.X, rot.Y, rot.Z)
}

// buildShape constructs a kernel solid from a shape tree.
func buildShape(k kernel.Kernel, s graph.ShapeData) (kernel.Solid, error) {
	switch d := s.(type) {
	case graph.BoxShape:
		return k.Box(d.Size.X, d.Size.Y, d.Size.Z), nil
	case graph.CylinderShape:
		return k.Cylinder(d.Height, d.Radius), nil
	case graph.SphereShape:
		return k.Sphere(d.Radius), nil
	case graph.BooleanShape:
		a, err := buildShape(k, d.A)
		if err != nil {
			return nil, err
		}
		b, err := buildShape(k, d.B)
		if err != nil {
			return nil, err
		}
		switch d.Op {
		case graph.OpUnion:
			return k.Union(a, b), nil
		case graph.OpDifference:
			return k.Difference(a, b), nil
		case graph.OpIntersection:
			return k.Intersection(a, b), nil
		}
		return nil, fmt.Errorf("unsupported boolean %s", d.Op)
	case graph.MovedShape:
		inner, err := buildShape(k, d.Shape)
		if err != nil {
			return nil, err
		}
		p := kernel.NewPlacement(r3.Vec{X: d.Translation.X, Y: d.Translation.Y, Z: d.Translation.Z},
			d.Rotation.X, d.Rotation.Y, d.Rotation.Z)
		return k.Place(inner, p), nil
	}
	return nil, fmt.Errorf("unsupported shape %T", s)
}
