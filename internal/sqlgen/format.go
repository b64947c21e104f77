package sqlgen

import "strings"

// Format formats a SELECT statement back to a SQL string. The output is
// flat (no pretty-printing) and always double-quotes identifiers.
func Format(stmt *SelectStmt) string {
	f := &formatter{}
	f.formatSelect(stmt)
	return strings.TrimSpace(f.buf.String())
}

// FormatExpr formats an expression AST back to a SQL string.
func FormatExpr(expr Expr) string {
	f := &formatter{}
	f.formatExpr(expr)
	return strings.TrimSpace(f.buf.String())
}

// formatter is a simple SQL string builder. No indentation or
// pretty-printing.
type formatter struct {
	buf strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

// writeIdent writes a quoted identifier.
func (f *formatter) writeIdent(s string) {
	f.write(QuoteIdentifier(s))
}

// commaSep writes items separated by ", ".
func (f *formatter) commaSep(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		fn(i)
	}
}

func (f *formatter) formatSelect(stmt *SelectStmt) {
	if stmt == nil {
		return
	}

	f.write("SELECT ")
	f.commaSep(len(stmt.Columns), func(i int) {
		f.formatSelectItem(stmt.Columns[i])
	})

	if stmt.From != "" {
		f.write(" FROM ")
		f.writeIdent(stmt.From)
	}

	if stmt.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(stmt.Where)
	}

	if len(stmt.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(stmt.GroupBy), func(i int) {
			f.formatExpr(stmt.GroupBy[i])
		})
	}

	if len(stmt.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(stmt.OrderBy), func(i int) {
			f.formatExpr(stmt.OrderBy[i].Expr)
			if stmt.OrderBy[i].Desc {
				f.write(" DESC")
			}
		})
	}

	if stmt.Limit != nil {
		f.write(" LIMIT ")
		f.formatExpr(stmt.Limit)
	}
}

func (f *formatter) formatSelectItem(item SelectItem) {
	f.formatExpr(item.Expr)
	if item.Alias != "" {
		f.write(" AS ")
		f.writeIdent(item.Alias)
	}
}

// formatExpr dispatches expression formatting by type.
func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *Literal:
		f.formatLiteral(expr)
	case *ColumnRef:
		f.writeIdent(expr.Column)
	case *BinaryExpr:
		f.formatExpr(expr.Left)
		f.write(" ")
		f.write(expr.Op)
		f.write(" ")
		f.formatExpr(expr.Right)
	case *FuncCall:
		f.write(expr.Name)
		f.write("(")
		if expr.Star {
			f.write("*")
		} else {
			f.commaSep(len(expr.Args), func(i int) {
				f.formatExpr(expr.Args[i])
			})
		}
		f.write(")")
	case *InExpr:
		f.formatExpr(expr.Expr)
		f.write(" IN (")
		f.commaSep(len(expr.Values), func(i int) {
			f.formatExpr(expr.Values[i])
		})
		f.write(")")
	case *BetweenExpr:
		f.formatExpr(expr.Expr)
		f.write(" BETWEEN ")
		f.formatExpr(expr.Low)
		f.write(" AND ")
		f.formatExpr(expr.High)
	}
}

func (f *formatter) formatLiteral(lit *Literal) {
	switch lit.Type {
	case LiteralString:
		f.write("'")
		// Escape single quotes within the string value
		f.write(strings.ReplaceAll(lit.Value, "'", "''"))
		f.write("'")
	case LiteralBool:
		f.write(strings.ToUpper(lit.Value))
	case LiteralNull:
		f.write("NULL")
	default:
		// Number
		f.write(lit.Value)
	}
}

// And chains conditions with AND, returning nil for an empty list.
func And(conds []Expr) Expr {
	var out Expr
	for _, c := range conds {
		if c == nil {
			continue
		}
		if out == nil {
			out = c
			continue
		}
		out = &BinaryExpr{Left: out, Op: "AND", Right: c}
	}
	return out
}
