package sqlgen

import (
	"encoding/json"
	"fmt"
	"strconv"

	"duck-rollup/internal/domain"
)

// Assemble renders a workload query as SQL against the given table, the
// form executed on the main table when routing falls back. Aggregate
// items are aliased with their canonical names so result headers match
// the routed form exactly.
func Assemble(q *domain.Query, table string) (string, error) {
	stmt := &SelectStmt{From: table}

	for _, item := range q.Select {
		expr, err := selectExpr(item)
		if err != nil {
			return "", err
		}
		col := SelectItem{Expr: expr}
		if item.IsAggregate() {
			col.Alias = item.Alias()
		}
		stmt.Columns = append(stmt.Columns, col)
	}

	where, err := WhereExpr(q.Where)
	if err != nil {
		return "", err
	}
	stmt.Where = where

	for _, col := range q.GroupBy {
		stmt.GroupBy = append(stmt.GroupBy, &ColumnRef{Column: col})
	}
	stmt.OrderBy = OrderByItems(q)
	stmt.Limit = LimitExpr(q)

	return Format(stmt), nil
}

// selectExpr builds the expression for one select item in its original
// (un-rewritten) form.
func selectExpr(item domain.SelectItem) (Expr, error) {
	if !item.IsAggregate() {
		return &ColumnRef{Column: item.Column}, nil
	}
	if item.Agg == domain.AggCount {
		return &FuncCall{Name: "COUNT", Star: true}, nil
	}
	return &FuncCall{Name: string(item.Agg), Args: []Expr{&ColumnRef{Column: item.Column}}}, nil
}

// WhereExpr chains the predicates into a single AND expression. Returns
// nil for an empty predicate list.
func WhereExpr(preds []domain.Predicate) (Expr, error) {
	conds := make([]Expr, 0, len(preds))
	for _, p := range preds {
		cond, err := PredicateExpr(p)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return And(conds), nil
}

// PredicateExpr builds the expression for one predicate.
func PredicateExpr(p domain.Predicate) (Expr, error) {
	col := &ColumnRef{Column: p.Column}

	switch p.Op {
	case domain.OpEq, domain.OpLt, domain.OpLte, domain.OpGt, domain.OpGte:
		lit, err := LiteralExpr(p.Value)
		if err != nil {
			return nil, fmt.Errorf("predicate on %q: %w", p.Column, err)
		}
		return &BinaryExpr{Left: col, Op: comparisonOp(p.Op), Right: lit}, nil

	case domain.OpBetween:
		vs := p.Values()
		if len(vs) != 2 {
			return nil, fmt.Errorf("between on %q needs exactly two values, got %d", p.Column, len(vs))
		}
		low, err := LiteralExpr(vs[0])
		if err != nil {
			return nil, fmt.Errorf("between on %q: %w", p.Column, err)
		}
		high, err := LiteralExpr(vs[1])
		if err != nil {
			return nil, fmt.Errorf("between on %q: %w", p.Column, err)
		}
		return &BetweenExpr{Expr: col, Low: low, High: high}, nil

	case domain.OpIn:
		vs := p.Values()
		if len(vs) == 0 {
			return nil, fmt.Errorf("in on %q needs a non-empty value list", p.Column)
		}
		values := make([]Expr, 0, len(vs))
		for _, v := range vs {
			lit, err := LiteralExpr(v)
			if err != nil {
				return nil, fmt.Errorf("in on %q: %w", p.Column, err)
			}
			values = append(values, lit)
		}
		return &InExpr{Expr: col, Values: values}, nil

	default:
		return nil, &domain.UnsupportedPredicateError{Operator: string(p.Op)}
	}
}

func comparisonOp(op domain.Operator) string {
	switch op {
	case domain.OpEq:
		return "="
	case domain.OpLt:
		return "<"
	case domain.OpLte:
		return "<="
	case domain.OpGt:
		return ">"
	default:
		return ">="
	}
}

// LiteralExpr creates a Literal expression from a workload value.
func LiteralExpr(v any) (Expr, error) {
	switch val := v.(type) {
	case nil:
		return &Literal{Type: LiteralNull}, nil
	case string:
		return &Literal{Type: LiteralString, Value: val}, nil
	case bool:
		return &Literal{Type: LiteralBool, Value: strconv.FormatBool(val)}, nil
	case json.Number:
		return &Literal{Type: LiteralNumber, Value: val.String()}, nil
	case int:
		return &Literal{Type: LiteralNumber, Value: strconv.Itoa(val)}, nil
	case int64:
		return &Literal{Type: LiteralNumber, Value: strconv.FormatInt(val, 10)}, nil
	case float64:
		return &Literal{Type: LiteralNumber, Value: strconv.FormatFloat(val, 'g', -1, 64)}, nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

// OrderByItems maps a query's order_by list onto the SELECT's output
// columns. Entries naming an aggregate's canonical alias become quoted
// references to that output column; everything else is treated as a
// column name.
func OrderByItems(q *domain.Query) []OrderByItem {
	if len(q.OrderBy) == 0 {
		return nil
	}
	out := make([]OrderByItem, 0, len(q.OrderBy))
	for _, o := range q.OrderBy {
		out = append(out, OrderByItem{
			Expr: &ColumnRef{Column: o.Expr},
			Desc: o.Dir == domain.Desc,
		})
	}
	return out
}

// LimitExpr returns the query's limit as a literal, or nil.
func LimitExpr(q *domain.Query) Expr {
	if q.Limit == nil {
		return nil
	}
	return &Literal{Type: LiteralNumber, Value: strconv.Itoa(*q.Limit)}
}
