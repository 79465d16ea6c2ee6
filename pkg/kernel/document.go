package kernel

// Object is one entry of a loaded CAD document. Placement is global: the
// object's local placement with all ancestor placements flattened in.
type Object struct {
	Label     string
	Shape     Solid
	Placement Placement
	IsPart    bool // false for assemblies and other containers
}

// Document is a loaded CAD document.
type Document struct {
	Path    string
	Objects []*Object
}

// Parts returns the objects that are parts, in document order.
func (d *Document) Parts() []*Object {
	var parts []*Object
	for _, o := range d.Objects {
		if o.IsPart {
			parts = append(parts, o)
		}
	}
	return parts
}
