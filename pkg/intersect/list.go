package intersect

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
)

// AllKeyword in an intersect list stands for every part in the document.
const AllKeyword = "all"

// ExpandAll replaces a list consisting of the keyword "all" (any case) with
// every label in all. Other lists are returned trimmed.
func ExpandAll(names, all []string) []string {
	names = lo.Map(names, func(n string, _ int) string { return strings.TrimSpace(n) })
	names = lo.Compact(names)
	if lo.ContainsBy(names, func(n string) bool { return strings.EqualFold(n, AllKeyword) }) {
		return append([]string(nil), all...)
	}
	return names
}

// ReadIntersects reads a one-column part list (blank lines and lines
// starting with # are ignored) and marks each target named in it.
func ReadIntersects(r io.Reader, targets []string) ([]bool, error) {
	named := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		named[line] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("intersect: read list: %w", err)
	}
	return lo.Map(targets, func(t string, _ int) bool { return named[t] }), nil
}

// Indices returns the positions of the set entries of marked.
func Indices(marked []bool) []int {
	var out []int
	for j, v := range marked {
		if v {
			out = append(out, j)
		}
	}
	return out
}
