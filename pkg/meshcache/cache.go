// Package meshcache maps (part label, resolution) pairs to STL files on disk
// and decides whether an existing file can be reused.
//
// Filenames are <label>___<token>.stl where token is the resolution's cache
// token: the Standard word as the user wrote it, or the edge length printed
// as %.6fmm. There is no eviction; a run either reuses what is there or, when
// Overwrite is set, regenerates it.
package meshcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/resolution"
	"go.uber.org/zap"
)

// Separator joins the part label and the resolution token.
const Separator = "___"

// Ext is the extension of cached meshes.
const Ext = ".stl"

// Action is the outcome of a cache lookup.
type Action int

const (
	// Create means the mesh must be generated and written to Path.
	Create Action = iota
	// Reuse means the mesh at Path can be loaded as is.
	Reuse
)

func (a Action) String() string {
	if a == Reuse {
		return "reuse"
	}
	return "create"
}

// Decision says what to do for one (label, resolution) pair.
type Decision struct {
	Action Action
	Path   string
}

// Cache is the STL directory of one run.
type Cache struct {
	Dir string
	// Overwrite forces every lookup to Create and lets Write replace
	// existing files. It is set once per run.
	Overwrite bool

	logger  *zap.Logger
	metrics *Metrics
}

// New returns a cache rooted at dir. metrics may be nil.
func New(dir string, overwrite bool, logger *zap.Logger, metrics *Metrics) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{Dir: dir, Overwrite: overwrite, logger: logger, metrics: metrics}
}

// Filename returns the cache filename for label at spec.
func Filename(label string, spec resolution.Spec) string {
	return label + Separator + spec.String() + Ext
}

// candidates lists the filenames a lookup tries, in order. A Standard token
// is tried verbatim first, then lowercased, so "Standard" finds files
// written as "standard".
func candidates(label string, spec resolution.Spec) []string {
	name := Filename(label, spec)
	if std, ok := spec.(resolution.Standard); ok {
		if lower := strings.ToLower(std.String()); lower != std.String() {
			return []string{name, label + Separator + lower + Ext}
		}
	}
	return []string{name}
}

// Resolve decides whether the mesh for label at spec can be reused. On a
// miss, Path is the verbatim filename to write.
func (c *Cache) Resolve(label string, spec resolution.Spec) (Decision, error) {
	create := Decision{Action: Create, Path: filepath.Join(c.Dir, Filename(label, spec))}
	if c.Overwrite {
		c.logger.Debug("cache overwrite set, regenerating",
			zap.String("label", label), zap.String("resolution", spec.String()))
		c.metrics.miss()
		return create, nil
	}

	for _, name := range candidates(label, spec) {
		path := filepath.Join(c.Dir, name)
		info, err := os.Stat(path)
		switch {
		case err == nil && info.Mode().IsRegular():
			c.logger.Info("reusing cached mesh", zap.String("label", label), zap.String("path", path))
			c.metrics.hit()
			return Decision{Action: Reuse, Path: path}, nil
		case err == nil:
			return Decision{}, fmt.Errorf("meshcache: %s is not a regular file", path)
		case !errors.Is(err, os.ErrNotExist):
			return Decision{}, fmt.Errorf("meshcache: stat %s: %w", path, err)
		}
	}

	c.logger.Debug("cache miss", zap.String("label", label), zap.String("resolution", spec.String()))
	c.metrics.miss()
	return create, nil
}

// ParseFilename decodes a cache filename (with or without directory) back
// into its label and resolution.
func ParseFilename(name string) (string, resolution.Spec, error) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), Ext) {
		return "", nil, fmt.Errorf("meshcache: %q is not an %s file", name, Ext)
	}
	base = base[:len(base)-len(Ext)]

	i := strings.LastIndex(base, Separator)
	if i <= 0 {
		return "", nil, fmt.Errorf("meshcache: %q has no %q separator", name, Separator)
	}
	label, token := base[:i], base[i+len(Separator):]

	if strings.EqualFold(token, resolution.StandardToken) {
		std := resolution.DefaultStandard()
		std.Token = token
		return label, std, nil
	}
	if !strings.HasSuffix(token, "mm") {
		return "", nil, errdefs.InvalidResolution(token, fmt.Errorf("unrecognised cache token in %q", name))
	}
	spec, err := resolution.Parse(token)
	if err != nil {
		return "", nil, err
	}
	return label, spec, nil
}
