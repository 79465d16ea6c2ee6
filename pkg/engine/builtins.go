package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/pfcmesh/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// Values handed between builtins. zygomys only needs them to print.

type shapeValue struct{ shape graph.ShapeData }

func (s *shapeValue) SexpString(*zygo.PrintState) string {
	switch d := s.shape.(type) {
	case graph.BoxShape:
		return fmt.Sprintf("(box %gx%gx%g)", d.Size.X, d.Size.Y, d.Size.Z)
	case graph.CylinderShape:
		return fmt.Sprintf("(cylinder h=%g r=%g)", d.Height, d.Radius)
	case graph.SphereShape:
		return fmt.Sprintf("(sphere r=%g)", d.Radius)
	case graph.BooleanShape:
		return fmt.Sprintf("(%s ...)", d.Op)
	case graph.MovedShape:
		return "(move ...)"
	}
	return "(shape)"
}

func (s *shapeValue) Type() *zygo.RegisteredType { return nil }

// nodeValue refers to a part, placement or assembly already in the graph.
type nodeValue struct {
	id    graph.NodeID
	label string
}

func (n *nodeValue) SexpString(*zygo.PrintState) string {
	if n.label != "" {
		return fmt.Sprintf("(node %q)", n.label)
	}
	return fmt.Sprintf("(node %s)", n.id.Short())
}

func (n *nodeValue) Type() *zygo.RegisteredType { return nil }

type vecValue struct{ v graph.Vec3 }

func (v *vecValue) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.v.X, v.v.Y, v.v.Z)
}

func (v *vecValue) Type() *zygo.RegisteredType { return nil }

// expect asserts that s holds a T, naming what the caller wanted otherwise.
func expect[T zygo.Sexp](s zygo.Sexp, want string) (T, error) {
	v, ok := s.(T)
	if !ok {
		return v, fmt.Errorf("expected %s, got %T (%s)", want, s, s.SexpString(nil))
	}
	return v, nil
}

func number(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func text(s zygo.Sexp) (string, error) {
	str, err := expect[*zygo.SexpStr](s, "string")
	if err != nil {
		return "", err
	}
	return str.S, nil
}

// call is the argument list of one builtin invocation with :keyword
// arguments split out. A trailing keyword without a value maps to nil.
type call struct {
	name string
	pos  []zygo.Sexp
	kw   map[string]zygo.Sexp
}

func newCall(name string, args []zygo.Sexp) *call {
	c := &call{name: name, kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		s, ok := args[i].(*zygo.SexpStr)
		if !ok || !strings.HasPrefix(s.S, kwPrefix) {
			c.pos = append(c.pos, args[i])
			continue
		}
		key := strings.TrimPrefix(s.S, kwPrefix)
		if i+1 < len(args) {
			c.kw[key] = args[i+1]
			i++
		} else {
			c.kw[key] = zygo.SexpNull
		}
	}
	return c
}

func (c *call) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", c.name, fmt.Errorf(format, args...))
}

// number reads an optional numeric keyword into dst.
func (c *call) number(key string, dst *float64) error {
	v, ok := c.kw[key]
	if !ok {
		return nil
	}
	f, err := number(v)
	if err != nil {
		return c.errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// vec reads an optional vec3 keyword. It returns nil when key is absent.
func (c *call) vec(key string) (*graph.Vec3, error) {
	v, ok := c.kw[key]
	if !ok {
		return nil, nil
	}
	vv, err := expect[*vecValue](v, "vec3")
	if err != nil {
		return nil, c.errorf("%s: %w", key, err)
	}
	out := vv.v
	return &out, nil
}

func (c *call) shape(i int) (graph.ShapeData, error) {
	if i >= len(c.pos) {
		return nil, c.errorf("missing shape argument")
	}
	sv, err := expect[*shapeValue](c.pos[i], "shape")
	if err != nil {
		return nil, c.errorf("operand %d: %w", i, err)
	}
	return sv.shape, nil
}

// builder records the parts, placements and assemblies a document
// defines into g.
type builder struct {
	g *graph.DesignGraph
	// placements numbers place calls so a part placed twice gets two
	// distinct, stable transform IDs.
	placements int
}

// registerBuiltins installs the document forms into env. Source must go
// through preprocessSource first so keywords arrive as marked strings.
func registerBuiltins(env *zygo.Zlisp, g *graph.DesignGraph) {
	b := &builder{g: g}
	forms := map[string]func(*call) (zygo.Sexp, error){
		"vec3":         b.vec3,
		"box":          b.box,
		"cylinder":     b.cylinder,
		"sphere":       b.sphere,
		"union":        b.boolean(graph.OpUnion),
		"difference":   b.boolean(graph.OpDifference),
		"intersection": b.boolean(graph.OpIntersection),
		"move":         b.move,
		"defpart":      b.defpart,
		"part":         b.part,
		"place":        b.place,
		"assembly":     b.assembly,
	}
	for name, form := range forms {
		env.AddFunction(name, func(_ *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			out, err := form(newCall(name, args))
			if err != nil {
				return zygo.SexpNull, err
			}
			return out, nil
		})
	}
}

// (vec3 x y z)
func (b *builder) vec3(c *call) (zygo.Sexp, error) {
	if len(c.pos) != 3 {
		return nil, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(c.pos))
	}
	var xyz [3]float64
	for i, a := range c.pos {
		f, err := number(a)
		if err != nil {
			return nil, c.errorf("%c: %w", "xyz"[i], err)
		}
		xyz[i] = f
	}
	return &vecValue{v: graph.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
}

// (box :size (vec3 x y z)) or (box x y z)
func (b *builder) box(c *call) (zygo.Sexp, error) {
	size, err := c.vec("size")
	if err != nil {
		return nil, err
	}
	if size != nil {
		return &shapeValue{shape: graph.BoxShape{Size: *size}}, nil
	}
	if len(c.pos) != 3 {
		return nil, fmt.Errorf("box requires :size or three dimensions")
	}
	dims, err := b.vec3(c)
	if err != nil {
		return nil, err
	}
	return &shapeValue{shape: graph.BoxShape{Size: dims.(*vecValue).v}}, nil
}

// (cylinder :height h :radius r)
func (b *builder) cylinder(c *call) (zygo.Sexp, error) {
	var cs graph.CylinderShape
	if err := c.number("height", &cs.Height); err != nil {
		return nil, err
	}
	if err := c.number("radius", &cs.Radius); err != nil {
		return nil, err
	}
	return &shapeValue{shape: cs}, nil
}

// (sphere :radius r)
func (b *builder) sphere(c *call) (zygo.Sexp, error) {
	var ss graph.SphereShape
	if err := c.number("radius", &ss.Radius); err != nil {
		return nil, err
	}
	return &shapeValue{shape: ss}, nil
}

// boolean builds (op a b c ...), folding left: (difference a b c) is
// (a - b) - c.
func (b *builder) boolean(op graph.BoolOp) func(*call) (zygo.Sexp, error) {
	return func(c *call) (zygo.Sexp, error) {
		if len(c.pos) < 2 {
			return nil, fmt.Errorf("%s requires at least two shapes, got %d", c.name, len(c.pos))
		}
		acc, err := c.shape(0)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(c.pos); i++ {
			next, err := c.shape(i)
			if err != nil {
				return nil, err
			}
			acc = graph.BooleanShape{Op: op, A: acc, B: next}
		}
		return &shapeValue{shape: acc}, nil
	}
}

// (move shape :at (vec3 ...) :rotate (vec3 ...))
func (b *builder) move(c *call) (zygo.Sexp, error) {
	shape, err := c.shape(0)
	if err != nil {
		return nil, err
	}
	ms := graph.MovedShape{Shape: shape}
	at, err := c.vec("at")
	if err != nil {
		return nil, err
	}
	rot, err := c.vec("rotate")
	if err != nil {
		return nil, err
	}
	if at != nil {
		ms.Translation = *at
	}
	if rot != nil {
		ms.Rotation = *rot
	}
	return &shapeValue{shape: ms}, nil
}

// label reads the leading string argument that names a part or assembly.
func (b *builder) label(c *call, what string) (string, error) {
	if len(c.pos) < 1 {
		return "", fmt.Errorf("%s requires a %s argument", c.name, what)
	}
	s, err := text(c.pos[0])
	if err != nil {
		return "", c.errorf("%s: %w", what, err)
	}
	if s == "" {
		return "", c.errorf("%s must not be empty", what)
	}
	return s, nil
}

// (defpart "T001" shape)
func (b *builder) defpart(c *call) (zygo.Sexp, error) {
	if len(c.pos) < 2 {
		return nil, fmt.Errorf("defpart requires a label and a shape expression")
	}
	label, err := b.label(c, "label")
	if err != nil {
		return nil, err
	}
	if b.g.Lookup(label) != nil {
		return nil, c.errorf("duplicate label %q", label)
	}
	sv, err := expect[*shapeValue](c.pos[1], "shape")
	if err != nil {
		return nil, fmt.Errorf("defpart %q: %w", label, err)
	}
	id := graph.NewNodeID("defpart/" + label)
	b.g.AddNode(&graph.Node{ID: id, Kind: graph.NodePart, Name: label, Data: graph.PartData{Shape: sv.shape}})
	return &nodeValue{id: id, label: label}, nil
}

// (part "T001") looks up a part or assembly defined earlier.
func (b *builder) part(c *call) (zygo.Sexp, error) {
	label, err := b.label(c, "label")
	if err != nil {
		return nil, err
	}
	n := b.g.Lookup(label)
	if n == nil {
		return nil, c.errorf("no part labelled %q", label)
	}
	return &nodeValue{id: n.ID, label: label}, nil
}

// (place node :at (vec3 ...) :rotate (vec3 ...))
func (b *builder) place(c *call) (zygo.Sexp, error) {
	if len(c.pos) < 1 {
		return nil, fmt.Errorf("place requires a part reference as first argument")
	}
	child, err := expect[*nodeValue](c.pos[0], "node reference")
	if err != nil {
		return nil, c.errorf("part: %w", err)
	}
	var td graph.TransformData
	if td.Translation, err = c.vec("at"); err != nil {
		return nil, err
	}
	if td.Rotation, err = c.vec("rotate"); err != nil {
		return nil, err
	}

	name := child.id.Short()
	if n := b.g.Get(child.id); n != nil && n.Name != "" {
		name = n.Name
	}
	b.adopt(child.id)
	b.placements++
	id := graph.NewNodeID(fmt.Sprintf("place/%s/%d", name, b.placements))
	b.g.AddNode(&graph.Node{ID: id, Kind: graph.NodeTransform, Children: []graph.NodeID{child.id}, Data: td})
	return &nodeValue{id: id}, nil
}

// (assembly "name" child...) where each child is a node reference or a
// list of them, e.g. the result of (map ...).
func (b *builder) assembly(c *call) (zygo.Sexp, error) {
	name, err := b.label(c, "name")
	if err != nil {
		return nil, err
	}
	if b.g.Lookup(name) != nil {
		return nil, c.errorf("duplicate name %q", name)
	}

	var children []graph.NodeID
	for i, arg := range c.pos[1:] {
		refs, err := nodeRefs(arg)
		if err != nil {
			return nil, c.errorf("child %d: %w", i+1, err)
		}
		children = append(children, refs...)
	}
	for _, id := range children {
		b.adopt(id)
	}

	id := graph.NewNodeID("assembly/" + name)
	b.g.AddNode(&graph.Node{ID: id, Kind: graph.NodeGroup, Name: name, Children: children, Data: graph.GroupData{}})
	b.g.AddRoot(id)
	return &nodeValue{id: id, label: name}, nil
}

// adopt stops a sub-assembly from being a root once something contains it.
func (b *builder) adopt(id graph.NodeID) {
	if n := b.g.Get(id); n != nil && n.Kind == graph.NodeGroup {
		b.g.RemoveRoot(id)
	}
}

// nodeRefs accepts a single node reference or a list or array of them.
func nodeRefs(s zygo.Sexp) ([]graph.NodeID, error) {
	if ref, ok := s.(*nodeValue); ok {
		return []graph.NodeID{ref.id}, nil
	}
	var items []zygo.Sexp
	switch v := s.(type) {
	case *zygo.SexpPair:
		var err error
		if items, err = zygo.ListToArray(v); err != nil {
			return nil, err
		}
	case *zygo.SexpArray:
		items = v.Val
	default:
		if s != zygo.SexpNull {
			return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
		}
	}
	ids := make([]graph.NodeID, 0, len(items))
	for j, item := range items {
		ref, err := expect[*nodeValue](item, "node reference")
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", j, err)
		}
		ids = append(ids, ref.id)
	}
	return ids, nil
}
