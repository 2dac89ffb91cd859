package nanoql

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
}

// BinaryExpr is a logical AND/OR of two expressions.
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}

// MatchExpr compares one column against a value.
// An empty Column means a free-text search across every column of the record.
type MatchExpr struct {
	Column string
	Value  string
	Op     string // "=", "!=" or "CONTAINS"
}

func (MatchExpr) node() {}

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}
