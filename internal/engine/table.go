package engine

import (
	"fmt"
)

// Table stores event records in columnar form.
// A Table is immutable once built and safe to share between goroutines.
type Table struct {
	cols  []*Column
	names []string
	index map[string]int
	rows  int
}

// NewTable builds a table from a header and rows of cells.
// Every row must have exactly one cell per header column.
func NewTable(header []string, rows [][]Cell) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, len(header)),
		names: append([]string(nil), header...),
		index: make(map[string]int, len(header)),
		rows:  len(rows),
	}
	for i, name := range header {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.index[name] = i
		t.cols[i] = newColumn(name, len(rows))
	}

	for r, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", r, len(row), len(header))
		}
		for i, cell := range row {
			t.cols[i].append(cell)
		}
	}
	return t, nil
}

// NumRows returns the number of records.
func (t *Table) NumRows() int {
	return t.rows
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// HasColumn reports whether the schema contains the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column, or nil when the schema lacks it.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.cols[i]
}

// Value returns the cell at (row, column) and whether it is present.
func (t *Table) Value(row int, column string) (string, bool) {
	c := t.Column(column)
	if c == nil {
		return "", false
	}
	return c.Get(row)
}

// Row returns the cells of one record in column order; missing cells are "".
func (t *Table) Row(row int) []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i], _ = c.Get(row)
	}
	return out
}

// Distinct returns the distinct values of a column in order of first appearance.
// Missing cells are reported once as "". A column the schema lacks yields nil.
func (t *Table) Distinct(column string) []string {
	c := t.Column(column)
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for i := range c.Values {
		v, _ := c.Get(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// record exposes one table row to the NanoQL matcher.
type record struct {
	t   *Table
	row int
}

func (r record) Field(column string) (string, bool) {
	return r.t.Value(r.row, column)
}

func (r record) Fields() []string {
	return r.t.names
}
