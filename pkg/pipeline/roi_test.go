package pipeline

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadROITable(t *testing.T) {
	src := `# divertor ROI
PFCname, resolution, intersectName
T001, standard, B001:B002
# disabled: T003,1.0,all
T002, 2.5, all
T004, 10mm,
`
	rows, err := ReadROITable(strings.NewReader(src))
	require.NoError(t, err)

	want := []ROIRow{
		{Part: "T001", Resolution: "standard", Intersects: []string{"B001", "B002"}},
		{Part: "T002", Resolution: "2.5", Intersects: []string{"all"}},
		{Part: "T004", Resolution: "10mm", Intersects: []string{}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("ReadROITable (-want +got):\n%s", diff)
	}
}

func TestReadROITableColumnOrder(t *testing.T) {
	src := "intersectName,PFCname,resolution\n: B001 ::B002 ,T001,Standard\n"
	rows, err := ReadROITable(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T001", rows[0].Part)
	assert.Equal(t, "Standard", rows[0].Resolution)
	assert.Equal(t, []string{"B001", "B002"}, rows[0].Intersects)
}

func TestReadROITableErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"only comments", "# nothing here\n"},
		{"no part column", "name,resolution\nT001,standard\n"},
		{"no resolution column", "PFCname,intersectName\nT001,B001\n"},
		{"empty part", "PFCname,resolution\n,standard\n"},
		{"bad quoting", "PFCname,resolution\n\"T001,standard\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadROITable(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}
