package sqlgen

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-rollup/internal/domain"
)

func intp(n int) *int { return &n }

func TestAssemble(t *testing.T) {
	tests := []struct {
		name  string
		query *domain.Query
		want  string
	}{
		{
			name: "bare_columns_with_group_by",
			query: &domain.Query{
				Select:  []domain.SelectItem{{Column: "day"}, {Column: "type"}},
				GroupBy: []string{"day", "type"},
			},
			want: `SELECT "day", "type" FROM "events" GROUP BY "day", "type"`,
		},
		{
			name: "aggregates_get_canonical_aliases",
			query: &domain.Query{
				Select: []domain.SelectItem{
					{Column: "day"},
					{Agg: domain.AggSum, Column: "bid_price"},
					{Agg: domain.AggCount, Column: "*"},
				},
				GroupBy: []string{"day"},
			},
			want: `SELECT "day", SUM("bid_price") AS "SUM(bid_price)", COUNT(*) AS "COUNT(*)" FROM "events" GROUP BY "day"`,
		},
		{
			name: "comparison_operators",
			query: &domain.Query{
				Select: []domain.SelectItem{{Agg: domain.AggAvg, Column: "total_price"}},
				Where: []domain.Predicate{
					{Column: "type", Op: domain.OpEq, Value: "purchase"},
					{Column: "total_price", Op: domain.OpGt, Value: json.Number("100")},
					{Column: "hour", Op: domain.OpLte, Value: json.Number("12")},
				},
			},
			want: `SELECT AVG("total_price") AS "AVG(total_price)" FROM "events" WHERE "type" = 'purchase' AND "total_price" > 100 AND "hour" <= 12`,
		},
		{
			name: "between_and_in",
			query: &domain.Query{
				Select: []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
				Where: []domain.Predicate{
					{Column: "day", Op: domain.OpBetween, Value: []any{"2024-06-01", "2024-06-07"}},
					{Column: "publisher_id", Op: domain.OpIn, Value: []any{json.Number("10"), json.Number("20")}},
				},
			},
			want: `SELECT COUNT(*) AS "COUNT(*)" FROM "events" WHERE "day" BETWEEN '2024-06-01' AND '2024-06-07' AND "publisher_id" IN (10, 20)`,
		},
		{
			name: "order_by_aggregate_alias_desc_with_limit",
			query: &domain.Query{
				Select: []domain.SelectItem{
					{Column: "country"},
					{Agg: domain.AggSum, Column: "total_price"},
				},
				GroupBy: []string{"country"},
				OrderBy: []domain.OrderBy{{Expr: "SUM(total_price)", Dir: domain.Desc}},
				Limit:   intp(5),
			},
			want: `SELECT "country", SUM("total_price") AS "SUM(total_price)" FROM "events" GROUP BY "country" ORDER BY "SUM(total_price)" DESC LIMIT 5`,
		},
		{
			name: "order_by_plain_column_asc",
			query: &domain.Query{
				Select:  []domain.SelectItem{{Column: "day"}, {Agg: domain.AggMin, Column: "bid_price"}},
				GroupBy: []string{"day"},
				OrderBy: []domain.OrderBy{{Expr: "day", Dir: domain.Asc}},
			},
			want: `SELECT "day", MIN("bid_price") AS "MIN(bid_price)" FROM "events" GROUP BY "day" ORDER BY "day"`,
		},
		{
			name: "string_values_escape_quotes",
			query: &domain.Query{
				Select: []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
				Where:  []domain.Predicate{{Column: "type", Op: domain.OpEq, Value: "o'brien"}},
			},
			want: `SELECT COUNT(*) AS "COUNT(*)" FROM "events" WHERE "type" = 'o''brien'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Assemble(tt.query, "events")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssemble_UnsupportedOperator(t *testing.T) {
	q := &domain.Query{
		Select: []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
		Where:  []domain.Predicate{{Column: "country", Op: "like", Value: "U%"}},
	}

	_, err := Assemble(q, "events")
	require.Error(t, err)

	var unsupported *domain.UnsupportedPredicateError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "like", unsupported.Operator)
}

func TestLiteralExpr(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "string", value: "US", want: "'US'"},
		{name: "json_number_int", value: json.Number("42"), want: "42"},
		{name: "json_number_float", value: json.Number("19.5"), want: "19.5"},
		{name: "bool", value: true, want: "TRUE"},
		{name: "null", value: nil, want: "NULL"},
		{name: "plain_int", value: 7, want: "7"},
		{name: "plain_float", value: 2.5, want: "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := LiteralExpr(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatExpr(expr))
		})
	}
}

func TestLiteralExpr_UnsupportedType(t *testing.T) {
	_, err := LiteralExpr(struct{}{})
	assert.Error(t, err)
}
