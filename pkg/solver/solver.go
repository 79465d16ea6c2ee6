// Package solver defines the boundary to the external thermal solver. The
// pipeline prepares a Handoff; a Driver implemented elsewhere consumes it.
package solver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/pfcmesh/pkg/run"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Handoff is everything a solver needs from a pipeline run.
type Handoff struct {
	RunID    uuid.UUID `yaml:"runID"`
	STLFiles []string  `yaml:"stlFiles"`
	// Extent bounds the intersect meshes, in metres.
	Extent run.Extent `yaml:"extent"`
	Parts  []string   `yaml:"parts"`
}

// Driver prepares and runs a solver case from a handoff.
type Driver interface {
	Prepare(ctx context.Context, h Handoff) error
}

// manifest is the on-disk form of a Handoff. The run ID is stored as text.
type manifest struct {
	RunID    string     `yaml:"runID"`
	STLFiles []string   `yaml:"stlFiles"`
	Extent   run.Extent `yaml:"extent"`
	Parts    []string   `yaml:"parts"`
}

// WriteManifest writes h to path as YAML, creating directories as needed.
func WriteManifest(path string, h Handoff) error {
	data, err := yaml.Marshal(manifest{
		RunID:    h.RunID.String(),
		STLFiles: h.STLFiles,
		Extent:   h.Extent,
		Parts:    h.Parts,
	})
	if err != nil {
		return fmt.Errorf("solver: marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("solver: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("solver: write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Handoff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Handoff{}, fmt.Errorf("solver: read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Handoff{}, fmt.Errorf("solver: parse manifest %s: %w", path, err)
	}
	id, err := uuid.Parse(m.RunID)
	if err != nil {
		return Handoff{}, fmt.Errorf("solver: manifest %s: run ID: %w", path, err)
	}
	return Handoff{RunID: id, STLFiles: m.STLFiles, Extent: m.Extent, Parts: m.Parts}, nil
}
