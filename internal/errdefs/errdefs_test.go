package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"unsupported format", UnsupportedFormat("a.iges"), ErrUnsupportedFormat},
		{"geometry load", GeometryLoad("a.step", errors.New("bad header")), ErrGeometryLoad},
		{"part not found", PartNotFound("T001"), ErrPartNotFound},
		{"mixed source", MixedMeshSource("a.stl", "T001"), ErrMixedMeshSource},
		{"invalid resolution", InvalidResolution("-1", nil), ErrInvalidResolution},
		{"mesh not found", MeshNotFound("T002"), ErrMeshNotFound},
		{"repair failed", RepairFailed("T003"), ErrRepairFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel), "wrapped error should still match")
			if tt.sentinel != ErrPartNotFound {
				assert.False(t, errors.Is(tt.err, ErrPartNotFound))
			}
		})
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("kernel rejected file")
	err := GeometryLoad("x.brep", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "x.brep")
	assert.Contains(t, err.Error(), "kernel rejected file")
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unsupported", UnsupportedFormat("a"), true},
		{"load", GeometryLoad("a", nil), true},
		{"mixed", MixedMeshSource("a.stl", "b"), true},
		{"resolution", InvalidResolution("0", nil), true},
		{"not found", PartNotFound("a"), false},
		{"mesh not found", MeshNotFound("a"), false},
		{"repair", RepairFailed("a"), false},
		{"foreign", errors.New("disk full"), true},
		{"wrapped recoverable", fmt.Errorf("entry 3: %w", PartNotFound("a")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "MixedMeshSourceError", KindMixedMeshSource.String())
	assert.Equal(t, "Unknown", Kind(99).String())
	assert.Equal(t, KindRepairFailed, KindOf(fmt.Errorf("x: %w", RepairFailed("p"))))
}
