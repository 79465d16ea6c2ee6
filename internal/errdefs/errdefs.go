// Package errdefs defines the error taxonomy shared by every pfcmesh
// component. Each error carries a Kind; errors.Is matches on Kind so callers
// can test against the exported sentinels regardless of message or cause.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind categorises an error for the propagation policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedFormat
	KindGeometryLoad
	KindPartNotFound
	KindMixedMeshSource
	KindInvalidResolution
	KindMeshNotFound
	KindRepairFailed
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindGeometryLoad:
		return "GeometryLoadError"
	case KindPartNotFound:
		return "PartNotFound"
	case KindMixedMeshSource:
		return "MixedMeshSourceError"
	case KindInvalidResolution:
		return "InvalidResolution"
	case KindMeshNotFound:
		return "MeshNotFound"
	case KindRepairFailed:
		return "RepairFailed"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind abort a pipeline run.
// InvalidResolution is fatal for the meshing call that raised it; the
// pipeline validates resolutions up front so it surfaces as a run abort.
func (k Kind) Fatal() bool {
	switch k {
	case KindUnsupportedFormat, KindGeometryLoad, KindMixedMeshSource, KindInvalidResolution:
		return true
	}
	return false
}

// Error is the concrete error type for every Kind.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "geometry.Load"
	Subject string // part label, path or value the error is about
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Subject != "" {
		msg += fmt.Sprintf(" (%s)", e.Subject)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrGeometryLoad      = &Error{Kind: KindGeometryLoad}
	ErrPartNotFound      = &Error{Kind: KindPartNotFound}
	ErrMixedMeshSource   = &Error{Kind: KindMixedMeshSource}
	ErrInvalidResolution = &Error{Kind: KindInvalidResolution}
	ErrMeshNotFound      = &Error{Kind: KindMeshNotFound}
	ErrRepairFailed      = &Error{Kind: KindRepairFailed}
)

// UnsupportedFormat reports a CAD path whose extension no reader recognises.
func UnsupportedFormat(path string) error {
	return &Error{Kind: KindUnsupportedFormat, Op: "geometry.Load", Subject: path}
}

// GeometryLoad reports a CAD file the kernel rejected.
func GeometryLoad(path string, err error) error {
	return &Error{Kind: KindGeometryLoad, Op: "geometry.Load", Subject: path, Err: err}
}

// PartNotFound reports a label with no matching part in the document.
func PartNotFound(label string) error {
	return &Error{Kind: KindPartNotFound, Op: "geometry.FindPartsByLabel", Subject: label}
}

// MixedMeshSource reports a group mixing user supplied and generated meshes.
func MixedMeshSource(userSupplied, generated string) error {
	return &Error{
		Kind:    KindMixedMeshSource,
		Op:      "meshcache.ClassifyAll",
		Subject: fmt.Sprintf("%q is a mesh file but %q is a CAD part", userSupplied, generated),
	}
}

// InvalidResolution reports a resolution the mesher cannot honour.
func InvalidResolution(value string, err error) error {
	return &Error{Kind: KindInvalidResolution, Op: "resolution.Validate", Subject: value, Err: err}
}

// MeshNotFound reports an unresolved mesh slot encountered downstream.
func MeshNotFound(label string) error {
	return &Error{Kind: KindMeshNotFound, Op: "facet.Compute", Subject: label}
}

// RepairFailed reports a mesh that is still not watertight after repair.
func RepairFailed(label string) error {
	return &Error{Kind: KindRepairFailed, Op: "repair.Repair", Subject: label}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must abort the run. Errors outside the
// taxonomy are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	if k == KindUnknown {
		return true
	}
	return k.Fatal()
}
