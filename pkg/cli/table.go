package cli

import (
	"fmt"
	"io"
	"strings"
)

// Table renders column-aligned output. Rows are buffered and written on
// Flush so widths account for every row; ANSI color codes do not count
// toward a column's width. Empty tables produce no output.
type Table struct {
	out     io.Writer
	headers []string
	rows    [][]string
	prefix  string
}

// NewTable creates a table writing to out.
func NewTable(out io.Writer, headers ...string) *Table {
	return &Table{out: out, headers: headers}
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// Row buffers a row. Missing cells are blank; extra cells are dropped.
func (t *Table) Row(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Len returns the number of buffered rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Flush writes the header, divider and rows.
func (t *Table) Flush() error {
	if len(t.rows) == 0 {
		return nil
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := visualLen(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", visualLen(h))
	}

	if err := t.line(t.headers, widths); err != nil {
		return err
	}
	if err := t.line(dividers, widths); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := t.line(row, widths); err != nil {
			return err
		}
	}
	t.rows = nil
	return nil
}

func (t *Table) line(cells []string, widths []int) error {
	var sb strings.Builder
	sb.WriteString(t.prefix)
	for i, cell := range cells {
		sb.WriteString(cell)
		if i == len(cells)-1 {
			break
		}
		sb.WriteString(strings.Repeat(" ", widths[i]-visualLen(cell)+2))
	}
	_, err := fmt.Fprintln(t.out, strings.TrimRight(sb.String(), " "))
	return err
}
