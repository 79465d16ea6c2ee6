package resolution

import (
	"math"
	"testing"

	"github.com/chazu/pfcmesh/internal/errdefs"
	"github.com/chazu/pfcmesh/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  Spec
		token string
	}{
		{"lower standard", "standard", DefaultStandard(), "standard"},
		{"title standard keeps case", "Standard", Standard{DefaultSurfaceDeviation, DefaultAngularDeviation, "Standard"}, "Standard"},
		{"upper standard trimmed", "  STANDARD ", Standard{DefaultSurfaceDeviation, DefaultAngularDeviation, "STANDARD"}, "STANDARD"},
		{"integer", "5", EdgeLength{Max: 5}, "5.000000mm"},
		{"decimal", "12.5", EdgeLength{Max: 12.5}, "12.500000mm"},
		{"with suffix", "0.250000mm", EdgeLength{Max: 0.25}, "0.250000mm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.token, got.String())
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "fine", "0", "-1", "NaN", "Inf", "1e400"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errdefs.ErrInvalidResolution)
		})
	}
}

func TestStandardValidate(t *testing.T) {
	assert.NoError(t, DefaultStandard().Validate())
	assert.NoError(t, Fine().Validate())
	assert.ErrorIs(t, Standard{SurfaceDeviation: 0, AngularDeviation: 1}.Validate(), errdefs.ErrInvalidResolution)
	assert.ErrorIs(t, Standard{SurfaceDeviation: 1, AngularDeviation: -1}.Validate(), errdefs.ErrInvalidResolution)
	assert.ErrorIs(t, EdgeLength{Max: math.Inf(1)}.Validate(), errdefs.ErrInvalidResolution)
}

func TestQuality(t *testing.T) {
	assert.Equal(t, kernel.Quality{EdgeLength: 3}, EdgeLength{Max: 3}.Quality())
	assert.Equal(t,
		kernel.Quality{LinearDeflection: 0.01, AngularDeflection: 0.0523599},
		Fine().Quality())
	assert.True(t, EdgeLength{Max: 3}.Quality().UsesEdgeLength())
	assert.False(t, DefaultStandard().Quality().UsesEdgeLength())
}

func TestEmptyTokenDefaults(t *testing.T) {
	assert.Equal(t, StandardToken, Standard{}.String())
	assert.True(t, IsStandard(Standard{}))
	assert.False(t, IsStandard(EdgeLength{Max: 1}))
}
