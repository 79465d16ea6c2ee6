package graph

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Severity grades a Finding. Errors make an assembly unusable; warnings
// are logged and the assembly is still flattened.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is one problem found by Validate. NodeID is zero for problems
// that belong to the graph as a whole.
type Finding struct {
	NodeID   NodeID
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	if f.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", f.Severity, f.NodeID.Short(), f.Message)
}

// Validate checks an assembly graph without modifying it. The graph is
// usable when Errors(Validate(g)) is empty.
func Validate(g *DesignGraph) []Finding {
	c := &checker{g: g}
	c.structure()
	c.labels()
	c.payloads()
	return c.findings
}

// Errors filters findings down to the error severity.
func Errors(findings []Finding) []Finding {
	return lo.Filter(findings, func(f Finding, _ int) bool {
		return f.Severity == SeverityError
	})
}

type checker struct {
	g        *DesignGraph
	findings []Finding
}

func (c *checker) errorf(id NodeID, format string, args ...any) {
	c.findings = append(c.findings, Finding{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (c *checker) warnf(id NodeID, format string, args ...any) {
	c.findings = append(c.findings, Finding{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// structure walks placements depth first from the roots, then from any
// node the roots did not reach. A child seen again on the current path is a
// cycle; a child that is not in the graph is a dangling reference. Nodes
// only reached in the second pass are orphans: defined but never placed
// under an assembly.
func (c *checker) structure() {
	const (
		unseen = iota
		onPath
		done
	)
	state := make(map[NodeID]int, len(c.g.Nodes))
	cycle := false

	var visit func(n *Node)
	visit = func(n *Node) {
		state[n.ID] = onPath
		for _, id := range n.Children {
			child, ok := c.g.Nodes[id]
			switch {
			case !ok:
				c.errorf(n.ID, "child reference %s does not exist", id.Short())
			case state[id] == onPath:
				if !cycle {
					c.errorf(id, "cycle detected: node %s is placed inside itself", id.Short())
					cycle = true
				}
			case state[id] == unseen:
				visit(child)
			}
		}
		state[n.ID] = done
	}

	for _, id := range c.g.Roots {
		root, ok := c.g.Nodes[id]
		if !ok {
			c.errorf(ZeroID, "root reference %s does not exist", id.Short())
			continue
		}
		if state[id] == unseen {
			visit(root)
		}
	}
	for _, id := range c.order() {
		if state[id] != unseen {
			continue
		}
		n := c.g.Nodes[id]
		c.warnf(id, "node %q is not reachable from any root (orphan)", lo.Ternary(n.Name != "", n.Name, id.Short()))
		visit(n)
	}
}

// labels checks that part and assembly names are unique and that the name
// index agrees with the nodes.
func (c *checker) labels() {
	for name, id := range c.g.NameIndex {
		if _, ok := c.g.Nodes[id]; !ok {
			c.errorf(ZeroID, "name index entry %q references non-existent node %s", name, id.Short())
		}
	}

	named := lo.Filter(c.nodes(), func(n *Node, _ int) bool { return n.Name != "" })
	byName := lo.GroupBy(named, func(n *Node) string { return n.Name })
	names := lo.Keys(byName)
	sort.Strings(names)
	for _, name := range names {
		if nodes := byName[name]; len(nodes) > 1 {
			c.errorf(ZeroID, "duplicate name %q assigned to %d nodes", name, len(nodes))
		}
	}
}

// payloads checks that each node carries the data its kind needs and that
// every primitive has positive dimensions.
func (c *checker) payloads() {
	for _, n := range c.nodes() {
		switch n.Kind {
		case NodePart:
			pd, ok := n.Data.(PartData)
			if !ok {
				c.errorf(n.ID, "part has %T payload, want PartData", n.Data)
				continue
			}
			if n.Name == "" {
				c.errorf(n.ID, "part has no label")
			}
			for _, msg := range checkShape(pd.Shape) {
				c.errorf(n.ID, "part %q: %s", n.Name, msg)
			}
		case NodeTransform:
			if _, ok := n.Data.(TransformData); !ok {
				c.errorf(n.ID, "transform has %T payload, want TransformData", n.Data)
			}
			if len(n.Children) != 1 {
				c.errorf(n.ID, "transform must have exactly one child, has %d", len(n.Children))
			}
		}
	}
}

// order lists node IDs in creation order, followed by any node that was
// inserted without going through AddNode.
func (c *checker) order() []NodeID {
	ids := lo.Filter(c.g.Order, func(id NodeID, _ int) bool { return c.g.Nodes[id] != nil })
	listed := lo.SliceToMap(ids, func(id NodeID) (NodeID, bool) { return id, true })
	var extra []NodeID
	for id := range c.g.Nodes {
		if !listed[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].String() < extra[j].String() })
	return append(ids, extra...)
}

func (c *checker) nodes() []*Node {
	return lo.Map(c.order(), func(id NodeID, _ int) *Node { return c.g.Nodes[id] })
}

// checkShape returns a message for every invalid primitive in a shape tree.
func checkShape(s ShapeData) []string {
	switch d := s.(type) {
	case nil:
		return []string{"missing shape"}
	case BoxShape:
		if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
			return []string{fmt.Sprintf("box size %s must be positive", d.Size)}
		}
	case CylinderShape:
		if d.Height <= 0 || d.Radius <= 0 {
			return []string{fmt.Sprintf("cylinder height %g and radius %g must be positive", d.Height, d.Radius)}
		}
	case SphereShape:
		if d.Radius <= 0 {
			return []string{fmt.Sprintf("sphere radius %g must be positive", d.Radius)}
		}
	case BooleanShape:
		return append(checkShape(d.A), checkShape(d.B)...)
	case MovedShape:
		return checkShape(d.Shape)
	default:
		return []string{fmt.Sprintf("unsupported shape %T", s)}
	}
	return nil
}
