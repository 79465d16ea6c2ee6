// Package pipeline runs the geometry-to-mesh orchestration: it loads the
// CAD document once, meshes the ROI, its intersect candidates and the gyro
// sources through the mesh cache, computes facet metrics and writes the
// solver handoff.
//
// A run is single threaded. Per-part failures are logged and attached to
// the entry; errors that errdefs.IsFatal reports abort the run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pfcmesh/internal/config"
	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/facet"
	"github.com/chazu/pfcmesh/pkg/geometry"
	"github.com/chazu/pfcmesh/pkg/intersect"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/chazu/pfcmesh/pkg/meshcache"
	"github.com/chazu/pfcmesh/pkg/repair"
	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/chazu/pfcmesh/pkg/run"
	"github.com/chazu/pfcmesh/pkg/solver"
	"github.com/chazu/pfcmesh/pkg/tessellate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Pipeline wires the components of one configuration together.
type Pipeline struct {
	// Driver, when set, is handed the solver handoff after the manifest is
	// written.
	Driver solver.Driver

	cfg     *config.Config
	repo    *geometry.Repository
	cache   *meshcache.Cache
	mesher  *tessellate.Mesher
	facets  *facet.Calculator
	repairs *repair.Metrics
	logger  *zap.Logger
}

// New builds a pipeline for cfg on kernel k. Counters are registered on reg
// when it is not nil.
func New(cfg *config.Config, k kernel.Kernel, reg prometheus.Registerer, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		repo:    geometry.New(k, logger.Named("geometry")),
		cache:   meshcache.New(cfg.Mesh.STLDir, cfg.Mesh.Overwrite, logger.Named("meshcache"), meshcache.NewMetrics(reg)),
		mesher:  tessellate.New(k, logger.Named("tessellate")),
		facets:  facet.New(logger.Named("facet")),
		repairs: repair.NewMetrics(reg),
		logger:  logger,
	}
}

// Repository returns the geometry repository, so callers can register
// readers for external CAD formats.
func (p *Pipeline) Repository() *geometry.Repository {
	return p.repo
}

// NewContext returns a run context carrying the configured coordinate
// settings.
func (p *Pipeline) NewContext() *run.Context {
	rctx := run.New()
	rctx.Permute = p.cfg.CAD.Permute
	rctx.UnitConvert = p.cfg.CAD.UnitConvert
	rctx.Translation = p.cfg.CAD.Translation.Vector()
	return rctx
}

// Result is the outcome of a full run.
type Result struct {
	Run       *run.Context
	ROI       *Group
	Intersect *Group
	Gyro      *Group
	// Mask is the candidate mask, nil when candidates were not filtered.
	Mask    *intersect.Mask
	Handoff solver.Handoff
}

// Run executes the whole pipeline and writes the solver manifest.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	rows, err := ReadROITableFile(p.cfg.ROI.Table)
	if err != nil {
		return nil, err
	}
	rctx := p.NewContext()
	log := p.logger.With(zap.Stringer("run", rctx.ID))
	log.Info("starting run", zap.String("cad", p.cfg.CAD.File), zap.Int("roi", len(rows)))

	roiSpecs, err := p.rowSpecs(rows)
	if err != nil {
		return nil, err
	}
	gridRes, err := p.cfg.Mesh.ParseResolution(p.cfg.Mesh.GridRes)
	if err != nil {
		return nil, err
	}
	gyroRes, err := p.cfg.Mesh.ParseResolution(p.cfg.ROI.GyroRes)
	if err != nil {
		return nil, err
	}

	if err := p.classify(rctx, rows); err != nil {
		return nil, err
	}
	if !rctx.BYOM {
		if err := p.LoadGeometry(rctx); err != nil {
			return nil, err
		}
	}

	res := &Result{Run: rctx}
	roiLabels := lo.Map(rows, func(r ROIRow, _ int) string { return r.Part })
	if res.ROI, err = p.MeshGroup(rctx, "roi", roiLabels, roiSpecs); err != nil {
		return nil, err
	}
	if p.cfg.Mesh.Repair {
		p.RepairGroup(rctx, res.ROI)
	}
	p.TranslateGroup(rctx, res.ROI)
	p.ComputeMetrics(rctx, res.ROI, false)

	targets, mask, err := p.SelectTargets(rctx, rows)
	if err != nil {
		return nil, err
	}
	res.Mask = mask
	if res.Intersect, err = p.MeshGroup(rctx, "intersect", targets, repeat(gridRes, len(targets))); err != nil {
		return nil, err
	}
	p.TranslateGroup(rctx, res.Intersect)
	p.ComputeMetrics(rctx, res.Intersect, true)

	gyro := p.cfg.ROI.GyroSources
	if res.Gyro, err = p.MeshGroup(rctx, "gyro", gyro, repeat(gyroRes, len(gyro))); err != nil {
		return nil, err
	}
	p.ComputeMetrics(rctx, res.Gyro, false)

	res.Handoff = solver.Handoff{
		RunID:    rctx.ID,
		STLFiles: lo.Uniq(lo.Flatten([][]string{res.ROI.Paths(), res.Intersect.Paths(), res.Gyro.Paths()})),
		Extent:   rctx.Extent,
		Parts:    lo.Map(res.ROI.Resolved(), func(e *Entry, _ int) string { return e.Label }),
	}
	if err := solver.WriteManifest(p.cfg.Solver.Manifest, res.Handoff); err != nil {
		return nil, err
	}
	log.Info("wrote solver manifest",
		zap.String("path", p.cfg.Solver.Manifest),
		zap.Int("stl_files", len(res.Handoff.STLFiles)),
	)

	if p.Driver != nil {
		if err := p.Driver.Prepare(ctx, res.Handoff); err != nil {
			return res, fmt.Errorf("pipeline: prepare solver: %w", err)
		}
	}
	return res, nil
}

// rowSpecs parses every row's resolution before anything is meshed.
func (p *Pipeline) rowSpecs(rows []ROIRow) ([]resolution.Spec, error) {
	specs := make([]resolution.Spec, len(rows))
	for i, r := range rows {
		spec, err := p.cfg.Mesh.ParseResolution(r.Resolution)
		if err != nil {
			return nil, fmt.Errorf("pipeline: ROI part %q: %w", r.Part, err)
		}
		specs[i] = spec
	}
	return specs, nil
}

// classify decides whether the run uses user supplied meshes. Every name
// the run will mesh must agree.
func (p *Pipeline) classify(rctx *run.Context, rows []ROIRow) error {
	names := lo.Map(rows, func(r ROIRow, _ int) string { return r.Part })
	for _, r := range rows {
		names = append(names, r.Intersects...)
	}
	names = append(names, p.cfg.ROI.GyroSources...)
	names = lo.Reject(names, func(n string, _ int) bool { return strings.EqualFold(n, intersect.AllKeyword) })

	src, err := meshcache.ClassifyAll(names)
	if err != nil {
		return err
	}
	rctx.BYOM = src == meshcache.SourceUserSupplied
	if rctx.BYOM {
		p.logger.Info("using user supplied meshes", zap.String("dir", p.cfg.Mesh.MachInDir))
	}
	return nil
}

// LoadGeometry loads the configured CAD document and applies the
// coordinate permutation if the run asks for it.
func (p *Pipeline) LoadGeometry(rctx *run.Context) error {
	if _, err := p.repo.Load(p.cfg.CAD.File); err != nil {
		return err
	}
	if p.repo.ApplyPermutation(rctx) {
		// Parts are now in solver coordinates, so facet centres must not
		// be permuted a second time.
		rctx.Permute = false
	}
	return nil
}

// MeshGroup resolves a mesh for every label at the matching spec, reusing
// cached files where possible. specs must be aligned with labels.
func (p *Pipeline) MeshGroup(rctx *run.Context, name string, labels []string, specs []resolution.Spec) (*Group, error) {
	if len(specs) != len(labels) {
		return nil, fmt.Errorf("pipeline: %d resolutions for %d %s parts", len(specs), len(labels), name)
	}
	log := p.logger.With(zap.String("group", name), zap.Stringer("run", rctx.ID))
	g := &Group{Name: name, Entries: make([]*Entry, len(labels))}

	var found map[string]*geometry.Part
	if !rctx.BYOM {
		found = p.repo.FindPartsByLabel(labels)
	}
	for i, label := range labels {
		e := &Entry{Label: label, Source: meshcache.Classify(label), Resolution: specs[i]}
		g.Entries[i] = e

		if rctx.BYOM {
			p.loadUserMesh(log, e)
			continue
		}
		e.Part = found[label]
		if e.Part == nil {
			e.Err = errdefs.PartNotFound(label)
			continue
		}
		if err := p.meshPart(log, e); err != nil {
			if errdefs.IsFatal(err) {
				return nil, err
			}
			e.Err = err
		}
	}

	log.Info("meshed group",
		zap.Int("parts", len(labels)),
		zap.Int("resolved", len(g.Resolved())),
	)
	return g, nil
}

// loadUserMesh reads a user supplied mesh from the machine input directory.
func (p *Pipeline) loadUserMesh(log *zap.Logger, e *Entry) {
	path := filepath.Join(p.cfg.Mesh.MachInDir, e.Label)
	m, err := meshcache.Load(path)
	if err != nil {
		e.Err = errdefs.MeshNotFound(e.Label)
		log.Warn("cannot load user supplied mesh",
			zap.String("label", e.Label), zap.String("path", path), zap.Error(err))
		return
	}
	m.PartName = e.Label
	e.Mesh, e.Path = m, path
}

// meshPart resolves e through the cache, meshing and writing on a miss.
func (p *Pipeline) meshPart(log *zap.Logger, e *Entry) error {
	d, err := p.cache.Resolve(e.Label, e.Resolution)
	if err != nil {
		return err
	}

	if d.Action == meshcache.Reuse {
		m, err := meshcache.Load(d.Path)
		if err == nil {
			m.PartName = e.Label
			e.Mesh, e.Path = m, d.Path
			return nil
		}
		log.Warn("cached mesh unreadable, regenerating",
			zap.String("label", e.Label), zap.String("path", d.Path), zap.Error(err))
	}

	m, err := p.mesher.Mesh(e.Part, e.Resolution)
	if err != nil {
		return fmt.Errorf("pipeline: mesh %q: %w", e.Label, err)
	}
	if d.Action == meshcache.Reuse {
		err = meshcache.Save(d.Path, m)
	} else {
		_, err = p.cache.Write(d.Path, m)
	}
	if err != nil {
		return err
	}
	e.Mesh, e.Path = m, d.Path
	return nil
}

// RepairGroup checks every resolved mesh and repairs the ones that are not
// watertight. Repaired meshes replace the entry mesh and, unless user
// supplied, the cached file.
func (p *Pipeline) RepairGroup(rctx *run.Context, g *Group) {
	for _, e := range g.Resolved() {
		res, err := repair.Run(e.Mesh, p.logger.Named("repair"), p.repairs)
		e.Health = &res
		if err != nil {
			e.Err = err
			p.logger.Warn("mesh is not watertight",
				zap.String("label", e.Label), zap.Stringer("state", res.State), zap.Error(err))
		}
		if res.State != repair.StateRepaired {
			continue
		}
		e.Mesh = res.Mesh
		if rctx.BYOM {
			p.logger.Info("repaired user supplied mesh in memory only", zap.String("label", e.Label))
			continue
		}
		if err := meshcache.Save(e.Path, res.Mesh); err != nil {
			p.logger.Warn("cannot store repaired mesh", zap.String("path", e.Path), zap.Error(err))
		}
	}
}

// TranslateGroup applies the global translation to every resolved mesh in
// g. Gyro sources are not translated.
func (p *Pipeline) TranslateGroup(rctx *run.Context, g *Group) {
	for _, e := range g.Resolved() {
		e.Mesh = p.facets.Translate(rctx, e.Mesh)
	}
}

// ComputeMetrics computes facet metrics for every resolved mesh in g. With
// fold set the meshes widen the run extent.
func (p *Pipeline) ComputeMetrics(rctx *run.Context, g *Group, fold bool) {
	for i, m := range p.facets.Compute(rctx, g.Meshes(), fold) {
		g.Entries[i].Metrics = m
	}
}

// SelectTargets returns the intersect parts to mesh for the ROI rows. A
// configured intersect file wins; otherwise candidates are filtered by
// toroidal angle and distance when enabled, and every named part is kept
// when not. The mask is nil unless candidates were filtered.
func (p *Pipeline) SelectTargets(rctx *run.Context, rows []ROIRow) ([]string, *intersect.Mask, error) {
	named := p.intersectNames(rows)

	switch {
	case p.cfg.ROI.IntersectFile != "":
		f, err := os.Open(p.cfg.ROI.IntersectFile)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: open intersect list: %w", err)
		}
		defer f.Close()
		marked, err := intersect.ReadIntersects(f, named)
		if err != nil {
			return nil, nil, err
		}
		kept := lo.Map(intersect.Indices(marked), func(j, _ int) string { return named[j] })
		p.logger.Info("intersect parts read from file",
			zap.String("path", p.cfg.ROI.IntersectFile), zap.Int("kept", len(kept)), zap.Int("of", len(named)))
		return kept, nil, nil

	case p.cfg.ROI.FilterCandidates && !rctx.BYOM:
		mask, _, targets, err := p.candidateMask(rows, named)
		if err != nil {
			return nil, nil, err
		}
		kept := lo.Map(mask.Targets(), func(j, _ int) string { return targets[j].Label })
		p.logger.Info("selected intersect candidates",
			zap.Int("kept", len(kept)), zap.Int("of", len(targets)))
		return kept, mask, nil
	}
	return named, nil, nil
}

// Candidates loads the CAD document and builds the candidate mask for the
// ROI table without meshing anything. It returns the mask with the source
// and target labels of its rows and columns.
func (p *Pipeline) Candidates() (*intersect.Mask, []string, []string, error) {
	rows, err := ReadROITableFile(p.cfg.ROI.Table)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := p.LoadGeometry(p.NewContext()); err != nil {
		return nil, nil, nil, err
	}
	mask, sources, targets, err := p.candidateMask(rows, p.intersectNames(rows))
	if err != nil {
		return nil, nil, nil, err
	}
	label := func(b intersect.Body, _ int) string { return b.Label }
	return mask, lo.Map(sources, label), lo.Map(targets, label), nil
}

// intersectNames is the union of the rows' intersect lists, in first-seen
// order, with the "all" keyword expanded against the loaded document.
func (p *Pipeline) intersectNames(rows []ROIRow) []string {
	var named []string
	for _, r := range rows {
		named = append(named, r.Intersects...)
	}
	return lo.Uniq(intersect.ExpandAll(named, p.repo.Labels()))
}

// candidateMask filters the named targets against the ROI parts. Every
// source gets the configured toroidal field sign.
func (p *Pipeline) candidateMask(rows []ROIRow, named []string) (*intersect.Mask, []intersect.Body, []intersect.Body, error) {
	sources, err := p.bodies(lo.Map(rows, func(r ROIRow, _ int) string { return r.Part }))
	if err != nil {
		return nil, nil, nil, err
	}
	targets, err := p.bodies(named)
	if err != nil {
		return nil, nil, nil, err
	}
	bt := repeat(float64(p.cfg.ROI.ToroidalFieldSign), len(sources))
	mask, err := intersect.SelectCandidates(sources, targets, bt)
	if err != nil {
		return nil, nil, nil, err
	}
	return mask, sources, targets, nil
}

// bodies reduces the labelled parts to their centres of mass. Missing
// labels are logged by the repository and skipped.
func (p *Pipeline) bodies(labels []string) ([]intersect.Body, error) {
	found := p.repo.FindPartsByLabel(labels)
	out := make([]intersect.Body, 0, len(found))
	for _, l := range labels {
		part, ok := found[l]
		if !ok {
			continue
		}
		com, err := p.repo.CenterOfMass(part)
		if err != nil {
			return nil, err
		}
		out = append(out, intersect.Body{Label: l, COM: com})
	}
	return out, nil
}

func repeat[T any](v T, n int) []T {
	return lo.Times(n, func(int) T { return v })
}
