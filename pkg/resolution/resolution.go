// Package resolution defines the mesh resolution requested for a part.
//
// A resolution is either the deviation bounded Standard preset or a maximum
// facet edge length in millimetres. Both variants encode to the token used in
// cache filenames and decode back from it.
package resolution

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/kernel"
)

// StandardToken is the canonical spelling of the Standard resolution.
const StandardToken = "standard"

// Default and fine Standard deviations.
const (
	DefaultSurfaceDeviation = 0.1      // mm
	DefaultAngularDeviation = 0.523599 // rad, 30 deg
	FineSurfaceDeviation    = 0.01
	FineAngularDeviation    = 0.0523599
)

// Spec is a mesh resolution. The concrete types are Standard and EdgeLength.
type Spec interface {
	// String returns the cache filename token.
	String() string
	// Quality translates the resolution into kernel mesher parameters.
	Quality() kernel.Quality
	// Validate returns an InvalidResolution error for values the mesher
	// cannot honour.
	Validate() error

	isSpec()
}

// Standard bounds the surface and angular deviation of the mesh from the
// true shape. Token is the word the user wrote, kept verbatim so cache
// filenames match what earlier runs produced.
type Standard struct {
	SurfaceDeviation float64 // mm
	AngularDeviation float64 // rad
	Token            string
}

// EdgeLength bounds the longest facet edge.
type EdgeLength struct {
	Max float64 // mm
}

// DefaultStandard returns the Standard preset with default deviations.
func DefaultStandard() Standard {
	return Standard{
		SurfaceDeviation: DefaultSurfaceDeviation,
		AngularDeviation: DefaultAngularDeviation,
		Token:            StandardToken,
	}
}

// Fine returns the fine Standard preset. It shares the Standard filename
// token, so switching presets requires overwriting cached meshes.
func Fine() Standard {
	return Standard{
		SurfaceDeviation: FineSurfaceDeviation,
		AngularDeviation: FineAngularDeviation,
		Token:            StandardToken,
	}
}

func (s Standard) isSpec() {}

func (s Standard) String() string {
	if s.Token == "" {
		return StandardToken
	}
	return s.Token
}

// Quality returns the deflection bounded mesher parameters.
func (s Standard) Quality() kernel.Quality {
	return kernel.Quality{
		LinearDeflection:  s.SurfaceDeviation,
		AngularDeflection: s.AngularDeviation,
	}
}

// Validate rejects non-positive or non-finite deviations.
func (s Standard) Validate() error {
	if !positive(s.SurfaceDeviation) {
		return errdefs.InvalidResolution(s.String(),
			fmt.Errorf("surface deviation %v must be positive", s.SurfaceDeviation))
	}
	if !positive(s.AngularDeviation) {
		return errdefs.InvalidResolution(s.String(),
			fmt.Errorf("angular deviation %v must be positive", s.AngularDeviation))
	}
	return nil
}

func (e EdgeLength) isSpec() {}

func (e EdgeLength) String() string {
	return fmt.Sprintf("%.6fmm", e.Max)
}

// Quality returns the edge-length bounded mesher parameters.
func (e EdgeLength) Quality() kernel.Quality {
	return kernel.Quality{EdgeLength: e.Max}
}

// Validate rejects non-positive or non-finite lengths.
func (e EdgeLength) Validate() error {
	if !positive(e.Max) {
		return errdefs.InvalidResolution(fmt.Sprint(e.Max),
			fmt.Errorf("edge length must be a positive finite number of millimetres"))
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Parse reads a resolution as written in an ROI table or config file:
// "standard" in any case, or a number of millimetres with an optional "mm"
// suffix. The parsed value is validated.
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, StandardToken) {
		std := DefaultStandard()
		std.Token = s
		return std, nil
	}

	num := strings.TrimSuffix(s, "mm")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil, errdefs.InvalidResolution(s, err)
	}
	e := EdgeLength{Max: v}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// IsStandard reports whether spec is a Standard resolution.
func IsStandard(spec Spec) bool {
	_, ok := spec.(Standard)
	return ok
}
