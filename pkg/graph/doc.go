// Package graph defines the assembly graph of a native pfcmesh document.
// The graph is an immutable DAG of parts, placements and groups that the
// engine builds from a .zy source file and the geometry repository flattens
// into a CAD document.
package graph
