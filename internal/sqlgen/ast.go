// Package sqlgen builds and formats the SQL this system emits: workload
// queries against the main table, their rewritten forms against summary
// tables, and summary-table DDL. Emission only; nothing here parses SQL.
package sqlgen

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// ColumnRef represents a column reference.
type ColumnRef struct {
	Column string
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// Literal categories.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal represents a literal value (number, string, bool, null).
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// BinaryExpr represents a binary expression (left op right). Op is the
// SQL operator text: =, <, <=, >, >=, /.
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// FuncCall represents an aggregate function call. Star renders
// COUNT(*).
type FuncCall struct {
	Name string
	Args []Expr
	Star bool
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// InExpr represents expr IN (v1, v2, ...).
type InExpr struct {
	Expr   Expr
	Values []Expr
}

func (*InExpr) node()     {}
func (*InExpr) exprNode() {}

// BetweenExpr represents expr BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Low  Expr
	High Expr
}

func (*BetweenExpr) node()     {}
func (*BetweenExpr) exprNode() {}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Expr  Expr
	Alias string // AS alias, always quoted when set
}

// OrderByItem represents an item in the ORDER BY clause.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// SelectStmt represents the SELECT shape this system emits: single
// table, optional where/group by/order by/limit.
type SelectStmt struct {
	Columns []SelectItem
	From    string
	Where   Expr
	GroupBy []Expr
	OrderBy []OrderByItem
	Limit   Expr
}

func (*SelectStmt) node() {}
