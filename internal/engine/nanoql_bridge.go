package engine

import (
	"github.com/skyyyyy916/my-cyber-dashboard/internal/pkg/nanoql"
)

// MatchNanoQL reports whether table row matches the parsed query.
// A nil node matches every row.
func MatchNanoQL(node nanoql.Node, t *Table, row int) bool {
	if node == nil {
		return true
	}
	return nanoql.Match(node, record{t: t, row: row})
}

// ParseNanoQL parses a query string into a NanoQL AST node.
// Returns nil if query is empty.
func ParseNanoQL(query string) (nanoql.Node, error) {
	return nanoql.Parse(query)
}
