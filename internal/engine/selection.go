package engine

import (
	"sort"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/model"
)

// Selection holds the allowed values per filterable column plus an optional
// NanoQL query that narrows the view further.
//
// A column without an entry in Values is unrestricted. A column whose entry is
// empty admits no rows. Missing cells are matched by the value "".
type Selection struct {
	Values map[string][]string `json:"values"`
	Query  string              `json:"q"`
}

// Set restricts column to the given values, replacing any earlier restriction.
func (s *Selection) Set(column string, values ...string) {
	if s.Values == nil {
		s.Values = make(map[string][]string)
	}
	s.Values[column] = append([]string{}, values...)
}

// Without returns a copy of the selection with column unrestricted.
func (s Selection) Without(column string) Selection {
	out := Selection{Query: s.Query}
	for k, v := range s.Values {
		if k == column {
			continue
		}
		out.Set(k, v...)
	}
	return out
}

// DefaultSelection selects every distinct value of each filterable column the
// table has, which is equivalent to no filtering.
func DefaultSelection(t *Table, columns []string) Selection {
	var sel Selection
	for _, col := range columns {
		if t.HasColumn(col) {
			sel.Set(col, t.Distinct(col)...)
		}
	}
	return sel
}

// FilterOption is the content of one multi-select control.
type FilterOption struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// FilterOptions lists the choices for each filterable column present in t.
// Attack types are sorted; other columns keep first-appearance order.
func FilterOptions(t *Table, columns []string) []FilterOption {
	var opts []FilterOption
	for _, col := range columns {
		if !t.HasColumn(col) {
			continue
		}
		values := t.Distinct(col)
		if col == model.ColAttackType {
			sort.Strings(values)
		}
		opts = append(opts, FilterOption{Column: col, Values: values})
	}
	return opts
}
