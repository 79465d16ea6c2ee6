package pipeline

import (
	"github.com/chazu/pfcmesh/pkg/facet"
	"github.com/chazu/pfcmesh/pkg/geometry"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/meshcache"
	"github.com/chazu/pfcmesh/pkg/repair"
	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/samber/lo"
)

// Entry is one part of a group and everything derived from it. Unset
// pointers mean the slot is unresolved.
type Entry struct {
	Label      string
	Source     meshcache.Source
	Part       *geometry.Part
	Resolution resolution.Spec
	// Path is the STL file the mesh was loaded from or written to.
	Path    string
	Mesh    *kernel.Mesh
	Metrics *facet.Metrics
	Health  *repair.Result
	// Err is the non-fatal error that left the entry unresolved or
	// unhealthy.
	Err error
}

// Resolved reports whether the entry has a mesh.
func (e *Entry) Resolved() bool {
	return e.Mesh != nil
}

// Group is an ordered list of entries meshed together: the ROI, its
// intersect candidates or the gyro sources.
type Group struct {
	Name    string
	Entries []*Entry
}

// Labels returns every entry label in order.
func (g *Group) Labels() []string {
	return lo.Map(g.Entries, func(e *Entry, _ int) string { return e.Label })
}

// Meshes returns every entry's mesh in order, nil where unresolved.
func (g *Group) Meshes() []*kernel.Mesh {
	return lo.Map(g.Entries, func(e *Entry, _ int) *kernel.Mesh { return e.Mesh })
}

// Resolved returns the entries that have a mesh.
func (g *Group) Resolved() []*Entry {
	return lo.Filter(g.Entries, func(e *Entry, _ int) bool { return e.Resolved() })
}

// Paths returns the STL paths of the resolved entries.
func (g *Group) Paths() []string {
	return lo.FilterMap(g.Entries, func(e *Entry, _ int) (string, bool) {
		return e.Path, e.Resolved() && e.Path != ""
	})
}

// Aligned reports whether every entry's derived data belongs to it: a mesh
// and its metrics carry the entry label, metrics exist only for a mesh and
// have one row per facet.
func (g *Group) Aligned() bool {
	for _, e := range g.Entries {
		if e == nil {
			return false
		}
		if e.Mesh == nil {
			if e.Metrics != nil {
				return false
			}
			continue
		}
		if e.Mesh.PartName != e.Label {
			return false
		}
		if e.Metrics == nil {
			continue
		}
		if e.Metrics.Label != e.Label || e.Metrics.Len() != e.Mesh.TriangleCount() {
			return false
		}
	}
	return true
}
