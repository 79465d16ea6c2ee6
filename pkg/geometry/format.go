package geometry

import (
	"path/filepath"
	"strings"

	"github.com/chazu/pfcmesh/internal/errdefs"
)

// Format identifies a CAD document format.
type Format int

const (
	FormatUnknown Format = iota
	FormatSTEP
	FormatBREP
	FormatNative
)

func (f Format) String() string {
	switch f {
	case FormatSTEP:
		return "step"
	case FormatBREP:
		return "brep"
	case FormatNative:
		return "native"
	default:
		return "unknown"
	}
}

// NativeExt is the extension of native assembly documents.
const NativeExt = ".zy"

// DetectFormat maps a path's extension, in any case, to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".step", ".stp":
		return FormatSTEP, nil
	case ".brep", ".brp":
		return FormatBREP, nil
	case NativeExt:
		return FormatNative, nil
	}
	return FormatUnknown, errdefs.UnsupportedFormat(path)
}
