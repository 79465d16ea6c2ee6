package meshcache

import (
	"path/filepath"
	"strings"

	"github.com/chazu/pfcmesh/internal/errdefs"
)

// Source says where a group's meshes come from.
type Source int

const (
	SourceUnknown Source = iota
	// SourceGenerated meshes are made from CAD parts.
	SourceGenerated
	// SourceUserSupplied meshes are STL files the user brought (BYOM).
	SourceUserSupplied
)

func (s Source) String() string {
	switch s {
	case SourceGenerated:
		return "generated"
	case SourceUserSupplied:
		return "user-supplied"
	default:
		return "unknown"
	}
}

// Classify reports whether a part name refers to a user supplied mesh
// file. Any name ending in .stl, in any case, is user supplied.
func Classify(name string) Source {
	if strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), Ext) {
		return SourceUserSupplied
	}
	return SourceGenerated
}

// ClassifyAll classifies every name and requires them to agree. An empty
// list is SourceUnknown. A mix of mesh files and CAD parts is a
// MixedMeshSource error.
func ClassifyAll(names []string) (Source, error) {
	var user, gen string
	for _, n := range names {
		switch Classify(n) {
		case SourceUserSupplied:
			if user == "" {
				user = n
			}
		case SourceGenerated:
			if gen == "" {
				gen = n
			}
		}
		if user != "" && gen != "" {
			return SourceUnknown, errdefs.MixedMeshSource(user, gen)
		}
	}
	switch {
	case user != "":
		return SourceUserSupplied, nil
	case gen != "":
		return SourceGenerated, nil
	}
	return SourceUnknown, nil
}
