package geometry

import "github.com/chazu/pfcmesh/pkg/kernel"

// Part is a labelled solid of the loaded document. Shape is in the part's
// local frame; Placement is global, with all ancestor placements flattened
// in. Parts are owned by the Repository.
type Part struct {
	Label     string
	Shape     kernel.Solid
	Placement kernel.Placement
}
