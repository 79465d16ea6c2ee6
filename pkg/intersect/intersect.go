// Package intersect reduces the set of parts that must be tested for
// intersection with field lines traced from a region of interest.
//
// Sources are ROI parts and targets are every candidate shadowing part.
// A target is kept for a source when it lies upstream in the toroidal field
// direction and its centre of mass is within DistanceThreshold of the
// source's on every axis. Only targets kept for some source are meshed.
package intersect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DistanceThreshold is the per-axis centre of mass separation, in mm,
// beyond which a target cannot shadow a source.
const DistanceThreshold = 500.0

// Body is a part reduced to what candidate selection needs.
type Body struct {
	Label string
	COM   r3.Vec // mm, solver coordinates
}

// Phi returns the toroidal angle of v in (-pi, pi].
func Phi(v r3.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// DeltaPhi returns the toroidal angle of target relative to source, in
// (-pi, pi]. The target angle is taken in [0, 2pi) before subtracting.
func DeltaPhi(source, target r3.Vec) float64 {
	pt := Phi(target)
	if pt < 0 {
		pt += 2 * math.Pi
	}
	d := pt - Phi(source)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// DeltaPhis returns the [sources x targets] matrix of DeltaPhi, or nil when
// either side is empty.
func DeltaPhis(sources, targets []Body) *mat.Dense {
	if len(sources) == 0 || len(targets) == 0 {
		return nil
	}
	d := mat.NewDense(len(sources), len(targets), nil)
	for i, s := range sources {
		for j, t := range targets {
			d.Set(i, j, DeltaPhi(s.COM, t.COM))
		}
	}
	return d
}

// upstream reports whether a target at dphi can shadow a source whose
// toroidal field component is bt.
func upstream(bt, dphi float64) bool {
	if bt > 0 {
		return dphi <= 0
	}
	return dphi >= 0
}

// near reports whether a and b are within DistanceThreshold on every axis.
func near(a, b r3.Vec) bool {
	d := r3.Sub(a, b)
	return math.Abs(d.X) <= DistanceThreshold &&
		math.Abs(d.Y) <= DistanceThreshold &&
		math.Abs(d.Z) <= DistanceThreshold
}

// SelectCandidates builds the intersection mask. bt holds the toroidal
// field component at each source and must be aligned with sources.
func SelectCandidates(sources, targets []Body, bt []float64) (*Mask, error) {
	if len(bt) != len(sources) {
		return nil, fmt.Errorf("intersect: %d field values for %d sources", len(bt), len(sources))
	}
	m := NewMask(len(sources), len(targets))
	dphi := DeltaPhis(sources, targets)
	if dphi == nil {
		return m, nil
	}
	for i, s := range sources {
		for j, t := range targets {
			if upstream(bt[i], dphi.At(i, j)) && near(s.COM, t.COM) {
				m.Set(i, j, true)
			}
		}
	}
	return m, nil
}
