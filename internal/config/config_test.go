package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/pfcmesh/pkg/resolution"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfcmesh.yaml")
	src := `
cad:
  file: model/tokamak.zy
  permute: false
  unitConvert: 0.001
  translation:
    z: 250
mesh:
  stlDir: /scratch/stl
  overwrite: true
  gridRes: 10mm
  fine: true
roi:
  table: roi.csv
  gyroSources: [T001]
  toroidalFieldSign: -1
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "model/tokamak.zy"), cfg.CAD.File)
	assert.False(t, cfg.CAD.Permute)
	assert.Equal(t, 0.001, cfg.CAD.UnitConvert)
	assert.Nil(t, cfg.CAD.Translation.X)
	require.NotNil(t, cfg.CAD.Translation.Z)
	assert.Equal(t, 250.0, *cfg.CAD.Translation.Z)
	assert.Equal(t, "/scratch/stl", cfg.Mesh.STLDir, "absolute paths are kept")
	assert.True(t, cfg.Mesh.Overwrite)
	assert.Equal(t, filepath.Join(dir, "roi.csv"), cfg.ROI.Table)
	assert.Equal(t, []string{"T001"}, cfg.ROI.GyroSources)
	assert.Equal(t, -1, cfg.ROI.ToroidalFieldSign)
	assert.Equal(t, 256, cfg.Mesh.MaxCells, "unset fields keep their defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cad: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PFCMESH_STL_DIR", "/env/stl")
	t.Setenv("PFCMESH_OVERWRITE", "YES")
	t.Setenv("PFCMESH_LOG_LEVEL", "warn")
	t.Setenv("PFCMESH_CAD_FILE", "/env/model.step")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/stl", cfg.Mesh.STLDir)
	assert.True(t, cfg.Mesh.Overwrite)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/env/model.step", cfg.CAD.File)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.CAD.File = "model.zy"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing cad file", func(c *Config) { c.CAD.File = "" }, "Config.CAD.File"},
		{"zero unit convert", func(c *Config) { c.CAD.UnitConvert = 0 }, "Config.CAD.UnitConvert"},
		{"bad grid resolution", func(c *Config) { c.Mesh.GridRes = "coarse" }, "Config.Mesh.GridRes"},
		{"negative gyro resolution", func(c *Config) { c.ROI.GyroRes = "-2mm" }, "Config.ROI.GyroRes"},
		{"zero field sign", func(c *Config) { c.ROI.ToroidalFieldSign = 0 }, "Config.ROI.ToroidalFieldSign"},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, "Config.Log.Level"},
		{"negative max cells", func(c *Config) { c.Mesh.MaxCells = -1 }, "Config.Mesh.MaxCells"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pfcmesh.yaml")
	cfg := DefaultConfig()
	z := -12.5
	cfg.CAD.File = "/abs/model.zy"
	cfg.CAD.Translation.Z = &z
	cfg.Mesh.STLDir = "/abs/stl"
	cfg.ROI.Table = "/abs/roi.csv"
	cfg.Solver.Manifest = "/abs/handoff.yaml"
	cfg.ROI.GyroSources = []string{"T001", "T002"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResolution(t *testing.T) {
	m := MeshConfig{}
	spec, err := m.ParseResolution("Standard")
	require.NoError(t, err)
	assert.Equal(t, resolution.Standard{SurfaceDeviation: 0.1, AngularDeviation: 0.523599, Token: "Standard"}, spec)

	m.Fine = true
	spec, err = m.ParseResolution("standard")
	require.NoError(t, err)
	assert.Equal(t, resolution.Fine(), spec)

	spec, err = m.ParseResolution("2.5")
	require.NoError(t, err)
	assert.Equal(t, resolution.EdgeLength{Max: 2.5}, spec, "the fine preset only affects Standard")

	_, err = m.ParseResolution("0mm")
	assert.Error(t, err)
}
