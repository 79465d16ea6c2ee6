package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
)

// ROI table column headers.
const (
	ColumnPart       = "PFCname"
	ColumnResolution = "resolution"
	ColumnIntersect  = "intersectName"
)

// ROIRow is one row of the ROI table.
type ROIRow struct {
	Part       string
	Resolution string
	// Intersects names the parts that may shadow Part. It may hold the
	// "all" keyword.
	Intersects []string
}

// ReadROITableFile reads the ROI table at path.
func ReadROITableFile(path string) ([]ROIRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open ROI table: %w", err)
	}
	defer f.Close()
	rows, err := ReadROITable(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return rows, nil
}

// ReadROITable parses an ROI table: CSV with a header naming the PFCname,
// resolution and intersectName columns in any order. Lines starting with #
// are comments. intersectName is a colon separated list and may be empty.
func ReadROITable(r io.Reader) ([]ROIRow, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("pipeline: ROI table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: read ROI header: %w", err)
	}
	cols := map[string]int{ColumnPart: -1, ColumnResolution: -1, ColumnIntersect: -1}
	for i, h := range header {
		for name := range cols {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				cols[name] = i
			}
		}
	}
	for _, name := range []string{ColumnPart, ColumnResolution} {
		if cols[name] < 0 {
			return nil, fmt.Errorf("pipeline: ROI table has no %s column", name)
		}
	}

	field := func(rec []string, name string) string {
		i := cols[name]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []ROIRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline: read ROI table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		row := ROIRow{
			Part:       field(rec, ColumnPart),
			Resolution: field(rec, ColumnResolution),
			Intersects: splitNames(field(rec, ColumnIntersect)),
		}
		if row.Part == "" {
			return nil, fmt.Errorf("pipeline: ROI table line %d: empty %s", line, ColumnPart)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitNames(s string) []string {
	names := lo.Map(strings.Split(s, ":"), func(n string, _ int) string { return strings.TrimSpace(n) })
	return lo.Compact(names)
}
