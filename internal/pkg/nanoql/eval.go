package nanoql

import (
	"strings"
)

// Record is a row that can be matched by column name.
// Field reports false for a missing cell or a column the record does not have.
type Record interface {
	Field(column string) (string, bool)
	Fields() []string
}

// Match evaluates the AST node against a record and returns true if it matches.
func Match(node Node, rec Record) bool {
	if node == nil {
		return true
	}

	switch n := node.(type) {
	case BinaryExpr:
		if n.Op == "OR" {
			return Match(n.Left, rec) || Match(n.Right, rec)
		}
		return Match(n.Left, rec) && Match(n.Right, rec)
	case MatchExpr:
		return evalMatch(n, rec)
	case NotExpr:
		return !Match(n.Expr, rec)
	default:
		return false
	}
}

func evalMatch(expr MatchExpr, rec Record) bool {
	if expr.Column == "" {
		return matchFullText(expr.Value, rec)
	}

	value, _ := rec.Field(expr.Column)

	switch expr.Op {
	case "!=":
		return !strings.EqualFold(value, expr.Value)
	case "CONTAINS":
		return containsIgnoreCase(value, expr.Value)
	default:
		return strings.EqualFold(value, expr.Value)
	}
}

func containsIgnoreCase(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchFullText searches every present cell of the record.
func matchFullText(query string, rec Record) bool {
	for _, col := range rec.Fields() {
		if v, ok := rec.Field(col); ok && containsIgnoreCase(v, query) {
			return true
		}
	}
	return false
}
