package sqlgen

import (
	"fmt"

	"duck-rollup/internal/domain"
)

// CreateSummaryTable returns the DDL that materializes a summary spec
// from the source table:
//
//	CREATE OR REPLACE TABLE <table> AS
//	SELECT <dims...>, SUM("col") AS "sum_col", ..., COUNT(*) AS "row_count"
//	FROM <source> [WHERE <constant filters>] GROUP BY <dims...>
//
// Column order is deterministic: dimensions in spec order (sorted),
// then aggregates in canonical order.
func CreateSummaryTable(spec *domain.SummarySpec, source string) (string, error) {
	if err := ValidateIdentifier(spec.Table); err != nil {
		return "", fmt.Errorf("invalid summary table name %q: %w", spec.Table, err)
	}
	if err := ValidateIdentifier(source); err != nil {
		return "", fmt.Errorf("invalid source table name %q: %w", source, err)
	}

	stmt := &SelectStmt{From: source}

	for _, dim := range spec.Dimensions {
		if err := ValidateIdentifier(dim); err != nil {
			return "", fmt.Errorf("invalid dimension %q: %w", dim, err)
		}
		stmt.Columns = append(stmt.Columns, SelectItem{Expr: &ColumnRef{Column: dim}})
		stmt.GroupBy = append(stmt.GroupBy, &ColumnRef{Column: dim})
	}

	for _, agg := range spec.Aggregates {
		item, err := aggregateItem(agg)
		if err != nil {
			return "", err
		}
		stmt.Columns = append(stmt.Columns, item)
	}
	if len(stmt.Columns) == 0 {
		return "", fmt.Errorf("summary spec %q has no columns", spec.Table)
	}

	conds := make([]Expr, 0, len(spec.Constants))
	for _, c := range spec.Constants {
		if err := ValidateIdentifier(c.Column); err != nil {
			return "", fmt.Errorf("invalid constant filter column %q: %w", c.Column, err)
		}
		lit, err := LiteralExpr(c.Value)
		if err != nil {
			return "", fmt.Errorf("constant filter on %q: %w", c.Column, err)
		}
		conds = append(conds, &BinaryExpr{Left: &ColumnRef{Column: c.Column}, Op: "=", Right: lit})
	}
	stmt.Where = And(conds)

	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", QuoteIdentifier(spec.Table), Format(stmt)), nil
}

// aggregateItem builds the select item for one physical aggregate
// column.
func aggregateItem(agg domain.AggColumn) (SelectItem, error) {
	if agg.Kind == domain.AggColRowCount {
		return SelectItem{Expr: &FuncCall{Name: "COUNT", Star: true}, Alias: agg.Name()}, nil
	}

	if err := ValidateIdentifier(agg.Column); err != nil {
		return SelectItem{}, fmt.Errorf("invalid aggregate column %q: %w", agg.Column, err)
	}
	var fn string
	switch agg.Kind {
	case domain.AggColSum:
		fn = "SUM"
	case domain.AggColMin:
		fn = "MIN"
	case domain.AggColMax:
		fn = "MAX"
	default:
		return SelectItem{}, fmt.Errorf("unknown aggregate kind %q", agg.Kind)
	}
	return SelectItem{
		Expr:  &FuncCall{Name: fn, Args: []Expr{&ColumnRef{Column: agg.Column}}},
		Alias: agg.Name(),
	}, nil
}

// DropTable returns DROP TABLE IF EXISTS DDL for name.
func DropTable(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid table name %q: %w", name, err)
	}
	return "DROP TABLE IF EXISTS " + QuoteIdentifier(name), nil
}
