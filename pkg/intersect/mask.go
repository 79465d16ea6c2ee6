package intersect

import (
	"fmt"
	"strings"
)

// Mask is a dense [sources x targets] boolean matrix. A set cell means the
// target must be tested for intersection with the source.
type Mask struct {
	rows, cols int
	cells      []bool
}

// NewMask returns an all-false mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{rows: rows, cols: cols, cells: make([]bool, rows*cols)}
}

// Dims returns the number of sources and targets.
func (m *Mask) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// Set marks or clears cell (i, j).
func (m *Mask) Set(i, j int, v bool) {
	m.check(i, j)
	m.cells[i*m.cols+j] = v
}

// At reports cell (i, j).
func (m *Mask) At(i, j int) bool {
	m.check(i, j)
	return m.cells[i*m.cols+j]
}

func (m *Mask) check(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("intersect: mask index (%d, %d) out of range %dx%d", i, j, m.rows, m.cols))
	}
}

// Targets returns, in order, the indices of targets marked for any source.
func (m *Mask) Targets() []int {
	var out []int
	for j := 0; j < m.cols; j++ {
		for i := 0; i < m.rows; i++ {
			if m.cells[i*m.cols+j] {
				out = append(out, j)
				break
			}
		}
	}
	return out
}

// Count returns the number of set cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.cells {
		if v {
			n++
		}
	}
	return n
}

// String renders the mask one source per line, 1 for set and 0 for clear.
func (m *Mask) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if m.cells[i*m.cols+j] {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
