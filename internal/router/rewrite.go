package router

import (
	"duck-rollup/internal/domain"
	"duck-rollup/internal/sqlgen"
)

// rewrite renders q against the summary table: aggregates re-aggregate
// the summary's partial columns, constant-classified predicates drop
// (they are baked into the table), and every other predicate is
// re-applied verbatim. Grouping stays on the query's own group_by; the
// spec's extra dimensions collapse through re-aggregation.
func rewrite(q *domain.Query, spec *domain.SummarySpec) (string, error) {
	stmt := &sqlgen.SelectStmt{From: spec.Table}

	for _, item := range q.Select {
		col, err := rewriteSelectItem(item)
		if err != nil {
			return "", err
		}
		stmt.Columns = append(stmt.Columns, col)
	}

	where, err := sqlgen.WhereExpr(reappliedPredicates(q))
	if err != nil {
		return "", err
	}
	stmt.Where = where

	for _, col := range q.GroupBy {
		stmt.GroupBy = append(stmt.GroupBy, &sqlgen.ColumnRef{Column: col})
	}
	stmt.OrderBy = sqlgen.OrderByItems(q)
	stmt.Limit = sqlgen.LimitExpr(q)

	return sqlgen.Format(stmt), nil
}

// rewriteSelectItem maps one select item onto summary columns:
//
//	col        → col
//	SUM(col)   → SUM(sum_col)
//	COUNT(*)   → SUM(row_count)
//	AVG(col)   → SUM(sum_col) / SUM(row_count)
//	MIN(col)   → MIN(min_col); MAX likewise
//
// Each aggregate keeps its canonical alias so routed and fallback result
// columns carry identical names. AVG uses the weighted form: summing
// sums and counts before dividing stays exact for unequal group sizes,
// where averaging partial averages would not.
func rewriteSelectItem(item domain.SelectItem) (sqlgen.SelectItem, error) {
	if !item.IsAggregate() {
		return sqlgen.SelectItem{Expr: &sqlgen.ColumnRef{Column: item.Column}}, nil
	}

	sumCol := func(col string) sqlgen.Expr {
		name := domain.AggColumn{Kind: domain.AggColSum, Column: col}.Name()
		return &sqlgen.FuncCall{Name: "SUM", Args: []sqlgen.Expr{&sqlgen.ColumnRef{Column: name}}}
	}
	rowCount := func() sqlgen.Expr {
		name := domain.AggColumn{Kind: domain.AggColRowCount}.Name()
		return &sqlgen.FuncCall{Name: "SUM", Args: []sqlgen.Expr{&sqlgen.ColumnRef{Column: name}}}
	}

	var expr sqlgen.Expr
	switch item.Agg {
	case domain.AggSum:
		expr = sumCol(item.Column)
	case domain.AggCount:
		expr = rowCount()
	case domain.AggAvg:
		expr = &sqlgen.BinaryExpr{Left: sumCol(item.Column), Op: "/", Right: rowCount()}
	case domain.AggMin:
		name := domain.AggColumn{Kind: domain.AggColMin, Column: item.Column}.Name()
		expr = &sqlgen.FuncCall{Name: "MIN", Args: []sqlgen.Expr{&sqlgen.ColumnRef{Column: name}}}
	case domain.AggMax:
		name := domain.AggColumn{Kind: domain.AggColMax, Column: item.Column}.Name()
		expr = &sqlgen.FuncCall{Name: "MAX", Args: []sqlgen.Expr{&sqlgen.ColumnRef{Column: name}}}
	default:
		return sqlgen.SelectItem{}, domain.ErrMalformedQuery("unknown aggregate %q", item.Agg)
	}

	return sqlgen.SelectItem{Expr: expr, Alias: item.Alias()}, nil
}

// reappliedPredicates returns the predicates that survive the rewrite:
// everything except eq filters on non-group-by columns, which the
// summary already baked in.
func reappliedPredicates(q *domain.Query) []domain.Predicate {
	groupBy := q.GroupBySet()

	var kept []domain.Predicate
	for _, p := range q.Where {
		if _, grouped := groupBy[p.Column]; !grouped && p.Op == domain.OpEq {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
