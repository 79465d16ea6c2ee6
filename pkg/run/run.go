// Package run holds the state scoped to a single pipeline run: the
// coordinate flags that every component must agree on, and the bounding
// extent accumulated while computing facet metrics.
package run

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Context is created once per run and passed explicitly to the components
// that read or update run-wide state.
type Context struct {
	ID uuid.UUID

	// Permute requests the (x,y,z) -> (z,x,y) coordinate permutation of
	// CAD-derived geometry.
	Permute bool
	// BYOM is set when the run uses user supplied meshes. User supplied
	// meshes are already in solver coordinates and are never permuted.
	BYOM bool
	// UnitConvert multiplies every facet centre after permutation.
	UnitConvert float64

	// Translation is the global mesh translation in mm. Nil components are
	// unset; if all are nil no translation is applied.
	Translation [3]*float64

	Extent Extent
}

// New returns a Context with a fresh run ID, unit conversion 1 and an
// empty extent.
func New() *Context {
	return &Context{
		ID:          uuid.New(),
		UnitConvert: 1,
		Extent:      NewExtent(),
	}
}

// TranslationVector returns the global translation with unset components
// as zero, and whether any component was set.
func (c *Context) TranslationVector() (r3.Vec, bool) {
	var v [3]float64
	set := false
	for i, p := range c.Translation {
		if p != nil {
			v[i] = *p
			set = true
		}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, set
}

// PermuteActive reports whether the coordinate permutation applies to
// geometry in this run.
func (c *Context) PermuteActive() bool {
	return c.Permute && !c.BYOM
}

// Extent is the (R, Z) bounding region of the meshes folded into it, in
// metres. It only ever widens.
type Extent struct {
	Rmin float64 `yaml:"rmin" json:"rmin"`
	Rmax float64 `yaml:"rmax" json:"rmax"`
	Zmin float64 `yaml:"zmin" json:"zmin"`
	Zmax float64 `yaml:"zmax" json:"zmax"`
}

// NewExtent returns an empty extent that any point widens.
func NewExtent() Extent {
	return Extent{
		Rmin: math.Inf(1),
		Rmax: math.Inf(-1),
		Zmin: math.Inf(1),
		Zmax: math.Inf(-1),
	}
}

// Empty reports whether no point has been folded in.
func (e Extent) Empty() bool {
	return e.Rmin > e.Rmax || e.Zmin > e.Zmax
}

// Widen folds the point (r, z) into the extent.
func (e *Extent) Widen(r, z float64) {
	e.Rmin = min(e.Rmin, r)
	e.Rmax = max(e.Rmax, r)
	e.Zmin = min(e.Zmin, z)
	e.Zmax = max(e.Zmax, z)
}

// Contains reports whether o lies within e.
func (e Extent) Contains(o Extent) bool {
	if o.Empty() {
		return true
	}
	return e.Rmin <= o.Rmin && e.Rmax >= o.Rmax && e.Zmin <= o.Zmin && e.Zmax >= o.Zmax
}
