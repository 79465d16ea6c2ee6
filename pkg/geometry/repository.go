// Package geometry loads CAD documents and hands out their parts.
//
// A Repository holds exactly one loaded document. Parts keep their shape in
// the local frame with a flattened global placement, so the coordinate
// permutation can be applied once by pre-multiplying every placement.
package geometry

import (
	"fmt"
	"strings"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/run"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Permutation is the fixed rotation that takes CAD coordinates to solver
// coordinates: +90 degrees about X.
var Permutation = kernel.NewPlacement(r3.Vec{}, 90, 0, 0)

// Repository loads a CAD document and serves its parts by label.
type Repository struct {
	kernel  kernel.Kernel
	readers map[Format]Reader
	logger  *zap.Logger

	doc     *kernel.Document
	parts   []*Part
	byLabel map[string]*Part
	com     map[string]r3.Vec

	// permuteMask is true until the permutation has been applied to the
	// loaded document.
	permuteMask bool
}

// New returns a Repository that builds native documents with k.
func New(k kernel.Kernel, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		kernel:  k,
		readers: make(map[Format]Reader),
		logger:  logger,
	}
	r.readers[FormatNative] = NewNativeReader(k, logger)
	return r
}

// RegisterReader installs the reader for a format, replacing any existing one.
func (r *Repository) RegisterReader(f Format, rd Reader) {
	r.readers[f] = rd
}

// Kernel returns the kernel parts are built with.
func (r *Repository) Kernel() kernel.Kernel {
	return r.kernel
}

// Load reads the document at path, replacing any previously loaded one.
// Only part objects are kept; a document with duplicate part labels is
// rejected.
func (r *Repository) Load(path string) (*kernel.Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	rd, ok := r.readers[format]
	if !ok {
		return nil, errdefs.GeometryLoad(path, fmt.Errorf("no reader registered for %s documents", format))
	}

	r.logger.Info("loading CAD document", zap.String("path", path), zap.Stringer("format", format))
	doc, err := rd.Read(path)
	if err != nil {
		return nil, errdefs.GeometryLoad(path, err)
	}

	parts := make([]*Part, 0, len(doc.Objects))
	byLabel := make(map[string]*Part, len(doc.Objects))
	for _, o := range doc.Objects {
		if !o.IsPart {
			r.logger.Debug("skipping non-part object", zap.String("label", o.Label))
			continue
		}
		if _, dup := byLabel[o.Label]; dup {
			return nil, errdefs.GeometryLoad(path, fmt.Errorf("duplicate part label %q", o.Label))
		}
		p := &Part{Label: o.Label, Shape: o.Shape, Placement: o.Placement}
		parts = append(parts, p)
		byLabel[o.Label] = p
	}

	r.doc = doc
	r.parts = parts
	r.byLabel = byLabel
	r.com = make(map[string]r3.Vec)
	r.permuteMask = true

	r.logger.Info("loaded CAD document", zap.String("path", path), zap.Int("parts", len(parts)))
	return doc, nil
}

// Document returns the loaded document, or nil.
func (r *Repository) Document() *kernel.Document {
	return r.doc
}

// Parts returns every part in document order.
func (r *Repository) Parts() []*Part {
	return r.parts
}

// Labels returns every part label in document order.
func (r *Repository) Labels() []string {
	return lo.Map(r.parts, func(p *Part, _ int) string { return p.Label })
}

// Part returns the part with the given label, or nil.
func (r *Repository) Part(label string) *Part {
	return r.byLabel[label]
}

// FindPartsByLabel returns the parts whose label matches one of labels.
// Labels with no match are logged and left out of the result.
func (r *Repository) FindPartsByLabel(labels []string) map[string]*Part {
	found := make(map[string]*Part, len(labels))
	for _, label := range labels {
		p, ok := r.byLabel[label]
		if !ok {
			r.logger.Warn("part not found in CAD document",
				zap.String("label", label),
				zap.Error(errdefs.PartNotFound(label)),
			)
			continue
		}
		found[label] = p
	}
	return found
}

// ApplyPermutation rotates every part into solver coordinates when ctx asks
// for it. It takes effect at most once per loaded document and reports
// whether it did anything.
func (r *Repository) ApplyPermutation(ctx *run.Context) bool {
	if !ctx.PermuteActive() {
		return false
	}
	if !r.permuteMask {
		r.logger.Debug("permutation already applied")
		return false
	}
	for _, p := range r.parts {
		p.Placement = Permutation.Multiply(p.Placement)
	}
	r.com = make(map[string]r3.Vec)
	r.permuteMask = false
	r.logger.Info("applied coordinate permutation", zap.Int("parts", len(r.parts)))
	return true
}

// Permuted reports whether the permutation has been applied.
func (r *Repository) Permuted() bool {
	return r.doc != nil && !r.permuteMask
}

// CenterOfMass returns the centre of mass of p's shape under its global
// placement. Results are cached until the placement changes.
func (r *Repository) CenterOfMass(p *Part) (r3.Vec, error) {
	if c, ok := r.com[p.Label]; ok {
		return c, nil
	}
	c, err := r.kernel.CenterOfMass(r.kernel.Place(p.Shape, p.Placement))
	if err != nil {
		return r3.Vec{}, fmt.Errorf("geometry: center of mass of %q: %w", p.Label, err)
	}
	if r.com == nil {
		r.com = make(map[string]r3.Vec)
	}
	r.com[p.Label] = c
	return c, nil
}

// StripParts returns a document holding only the parts whose label
// contains one of labels, with their current global placements.
func (r *Repository) StripParts(labels []string) *kernel.Document {
	kept := lo.Filter(r.parts, func(p *Part, _ int) bool {
		return lo.SomeBy(labels, func(l string) bool { return strings.Contains(p.Label, l) })
	})

	out := &kernel.Document{}
	if r.doc != nil {
		out.Path = r.doc.Path
	}
	out.Objects = lo.Map(kept, func(p *Part, _ int) *kernel.Object {
		return &kernel.Object{Label: p.Label, Shape: p.Shape, Placement: p.Placement, IsPart: true}
	})
	r.logger.Debug("stripped document", zap.Int("kept", len(out.Objects)), zap.Int("of", len(r.parts)))
	return out
}
