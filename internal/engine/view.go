package engine

import (
	"fmt"
)

// View is a filtered subset of a table, stored as row indices.
// It never copies or mutates the underlying table.
type View struct {
	table *Table
	rows  []int
}

// Len returns the number of rows in the view.
func (v View) Len() int {
	return len(v.rows)
}

// Table returns the source table.
func (v View) Table() *Table {
	return v.table
}

// RowIndex returns the table row backing the i-th view row.
func (v View) RowIndex(i int) int {
	return v.rows[i]
}

// Value returns the cell of the i-th view row.
func (v View) Value(i int, column string) (string, bool) {
	return v.table.Value(v.rows[i], column)
}

// Row returns all cells of the i-th view row in column order.
func (v View) Row(i int) []string {
	return v.table.Row(v.rows[i])
}

// Slice returns the view rows in [offset, offset+limit). A limit <= 0 means no limit.
func (v View) Slice(offset, limit int) View {
	if offset < 0 {
		offset = 0
	}
	if offset > len(v.rows) {
		offset = len(v.rows)
	}
	end := len(v.rows)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return View{table: v.table, rows: v.rows[offset:end]}
}

// Apply returns the rows of t matching every restricted column of sel and,
// if present, its query. Restrictions on columns t does not have are ignored.
func Apply(t *Table, sel Selection) (View, error) {
	node, err := ParseNanoQL(sel.Query)
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	type constraint struct {
		col     *Column
		allowed map[string]struct{}
	}
	var constraints []constraint
	for name, values := range sel.Values {
		col := t.Column(name)
		if col == nil {
			continue
		}
		allowed := make(map[string]struct{}, len(values))
		for _, v := range values {
			allowed[v] = struct{}{}
		}
		constraints = append(constraints, constraint{col: col, allowed: allowed})
	}

	rows := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		keep := true
		for _, c := range constraints {
			v, _ := c.col.Get(i)
			if _, ok := c.allowed[v]; !ok {
				keep = false
				break
			}
		}
		if keep && !MatchNanoQL(node, t, i) {
			keep = false
		}
		if keep {
			rows = append(rows, i)
		}
	}

	return View{table: t, rows: rows}, nil
}
