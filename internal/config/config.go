// Package config holds pfcmesh run configuration, read from YAML with
// PFCMESH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all pfcmesh configuration.
type Config struct {
	CAD    CADConfig    `yaml:"cad"`
	Mesh   MeshConfig   `yaml:"mesh"`
	ROI    ROIConfig    `yaml:"roi"`
	Solver SolverConfig `yaml:"solver"`
	Log    LogConfig    `yaml:"log"`
}

// CADConfig selects the CAD document and how its coordinates map into the
// solver frame.
type CADConfig struct {
	File        string            `yaml:"file" validate:"required"`
	Permute     bool              `yaml:"permute"`
	UnitConvert float64           `yaml:"unitConvert" validate:"gt=0"`
	Translation TranslationConfig `yaml:"translation"`
}

// TranslationConfig is the global mesh translation in mm. Unset components
// are nil.
type TranslationConfig struct {
	X *float64 `yaml:"x,omitempty"`
	Y *float64 `yaml:"y,omitempty"`
	Z *float64 `yaml:"z,omitempty"`
}

// MeshConfig configures meshing and the STL cache.
type MeshConfig struct {
	STLDir    string `yaml:"stlDir" validate:"required"`
	MachInDir string `yaml:"machInDir"`
	Overwrite bool   `yaml:"overwrite"`
	// GridRes is the resolution intersect candidates are meshed at.
	GridRes string `yaml:"gridRes" validate:"resolution"`
	// Fine selects the fine Standard preset for "standard" resolutions.
	Fine     bool `yaml:"fine"`
	Repair   bool `yaml:"repair"`
	MaxCells int  `yaml:"maxCells" validate:"gte=0"`
}

// ROIConfig configures the region of interest and its companion groups.
type ROIConfig struct {
	Table       string   `yaml:"table" validate:"required"`
	GyroSources []string `yaml:"gyroSources"`
	GyroRes     string   `yaml:"gyroRes" validate:"resolution"`
	// ToroidalFieldSign is the sign of the toroidal field at every ROI part.
	ToroidalFieldSign int  `yaml:"toroidalFieldSign" validate:"oneof=-1 1"`
	FilterCandidates  bool `yaml:"filterCandidates"`
	// IntersectFile, when set, replaces candidate selection with a fixed
	// list of parts.
	IntersectFile string `yaml:"intersectFile"`
}

// SolverConfig configures the handoff to the solver.
type SolverConfig struct {
	Manifest string `yaml:"manifest" validate:"required"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CAD: CADConfig{
			Permute:     true,
			UnitConvert: 1.0,
		},
		Mesh: MeshConfig{
			STLDir:   "stl",
			GridRes:  resolution.StandardToken,
			MaxCells: 256,
		},
		ROI: ROIConfig{
			Table:             "roi.csv",
			GyroRes:           resolution.StandardToken,
			ToroidalFieldSign: 1,
			FilterCandidates:  true,
		},
		Solver: SolverConfig{
			Manifest: "handoff.yaml",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path on top of the defaults, then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// resolvePaths makes relative file paths relative to the config file.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.CAD.File, &c.Mesh.STLDir, &c.Mesh.MachInDir,
		&c.ROI.Table, &c.ROI.IntersectFile, &c.Solver.Manifest,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Mesh.STLDir = getEnv("PFCMESH_STL_DIR", c.Mesh.STLDir)
	c.Mesh.Overwrite = getEnvBool("PFCMESH_OVERWRITE", c.Mesh.Overwrite)
	c.Log.Level = getEnv("PFCMESH_LOG_LEVEL", c.Log.Level)
	c.CAD.File = getEnv("PFCMESH_CAD_FILE", c.CAD.File)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// Validate checks the configuration for a pipeline run.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("resolution", validResolution); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func validResolution(fl validator.FieldLevel) bool {
	_, err := resolution.Parse(fl.Field().String())
	return err == nil
}

// Vector returns the translation as the [x, y, z] pointers a run
// context holds.
func (t TranslationConfig) Vector() [3]*float64 {
	return [3]*float64{t.X, t.Y, t.Z}
}

// Standard returns the Standard preset selected by the mesh config, with
// token as its filename word.
func (m MeshConfig) Standard(token string) resolution.Standard {
	std := resolution.DefaultStandard()
	if m.Fine {
		std = resolution.Fine()
	}
	if token != "" {
		std.Token = token
	}
	return std
}

// ParseResolution parses a resolution string, applying the fine preset to
// Standard resolutions when configured.
func (m MeshConfig) ParseResolution(s string) (resolution.Spec, error) {
	spec, err := resolution.Parse(s)
	if err != nil {
		return nil, err
	}
	if std, ok := spec.(resolution.Standard); ok {
		return m.Standard(std.Token), nil
	}
	return spec, nil
}
