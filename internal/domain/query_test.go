package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_UnmarshalJSON(t *testing.T) {
	raw := `{
		"id": "q1",
		"select": ["day", {"SUM": "bid_price"}, {"count": "*"}],
		"from": "events",
		"where": [
			{"col": "type", "op": "EQ", "val": "impression"},
			{"col": "bid_price", "op": "gt", "val": 19.99},
			{"col": "day", "op": "between", "val": ["2024-06-01", "2024-06-07"]}
		],
		"group_by": ["day"],
		"order_by": ["day", {"col": "SUM(bid_price)", "dir": "DESC"}],
		"limit": 10
	}`

	var q Query
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.Equal(t, "q1", q.ID)
	assert.Equal(t, []SelectItem{
		{Column: "day"},
		{Agg: AggSum, Column: "bid_price"},
		{Agg: AggCount, Column: "*"},
	}, q.Select)
	assert.Equal(t, "events", q.From)

	require.Len(t, q.Where, 3)
	assert.Equal(t, Predicate{Column: "type", Op: OpEq, Value: "impression"}, q.Where[0])
	assert.Equal(t, Predicate{Column: "bid_price", Op: OpGt, Value: json.Number("19.99")}, q.Where[1],
		"numeric values keep exact text")
	assert.Equal(t, Predicate{Column: "day", Op: OpBetween, Value: []any{"2024-06-01", "2024-06-07"}}, q.Where[2])

	assert.Equal(t, []string{"day"}, q.GroupBy)
	assert.Equal(t, []OrderBy{
		{Expr: "day", Dir: Asc},
		{Expr: "SUM(bid_price)", Dir: Desc},
	}, q.OrderBy)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 10, *q.Limit)

	require.NoError(t, q.Validate("events"))
}

func TestSelectItem_UnmarshalKeepsUnknownFunction(t *testing.T) {
	var item SelectItem
	require.NoError(t, json.Unmarshal([]byte(`{"median": "bid_price"}`), &item))
	assert.Equal(t, AggFunc("MEDIAN"), item.Agg)

	q := Query{ID: "q1", Select: []SelectItem{item}}
	err := q.Validate("events")
	require.Error(t, err)
	assert.ErrorContains(t, err, "MEDIAN")
}

func TestSelectItem_Alias(t *testing.T) {
	assert.Equal(t, "day", SelectItem{Column: "day"}.Alias())
	assert.Equal(t, "SUM(bid_price)", SelectItem{Agg: AggSum, Column: "bid_price"}.Alias())
	assert.Equal(t, "COUNT(*)", SelectItem{Agg: AggCount, Column: "*"}.Alias())
}

func TestQuery_Validate(t *testing.T) {
	base := func() *Query {
		return &Query{
			ID: "q1",
			Select: []SelectItem{
				{Column: "day"},
				{Agg: AggSum, Column: "bid_price"},
			},
			From:    "events",
			GroupBy: []string{"day"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Query)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(q *Query) {},
		},
		{
			name:    "empty_select",
			mutate:  func(q *Query) { q.Select = nil },
			wantErr: "empty select",
		},
		{
			name:    "unknown_source_table",
			mutate:  func(q *Query) { q.From = "clicks" },
			wantErr: "unknown source table",
		},
		{
			name:    "bare_column_not_grouped",
			mutate:  func(q *Query) { q.Select = []SelectItem{{Column: "country"}, {Agg: AggCount, Column: "*"}} },
			wantErr: "group_by",
		},
		{
			name:    "count_over_column",
			mutate:  func(q *Query) { q.Select = append(q.Select, SelectItem{Agg: AggCount, Column: "bid_price"}) },
			wantErr: "COUNT takes *",
		},
		{
			name:    "sum_over_star",
			mutate:  func(q *Query) { q.Select = append(q.Select, SelectItem{Agg: AggSum, Column: "*"}) },
			wantErr: "cannot take *",
		},
		{
			name:    "empty_group_by_column",
			mutate:  func(q *Query) { q.GroupBy = append(q.GroupBy, "") },
			wantErr: "empty group_by column",
		},
		{
			name:    "bad_order_direction",
			mutate:  func(q *Query) { q.OrderBy = []OrderBy{{Expr: "day", Dir: "sideways"}} },
			wantErr: "asc or desc",
		},
		{
			name:    "empty_order_expression",
			mutate:  func(q *Query) { q.OrderBy = []OrderBy{{Dir: Asc}} },
			wantErr: "empty order_by",
		},
		{
			name:    "between_needs_two_values",
			mutate:  func(q *Query) { q.Where = []Predicate{{Column: "day", Op: OpBetween, Value: []any{"2024-06-01"}}} },
			wantErr: "two-element",
		},
		{
			name:    "in_needs_non_empty_list",
			mutate:  func(q *Query) { q.Where = []Predicate{{Column: "country", Op: OpIn, Value: []any{}}} },
			wantErr: "non-empty list",
		},
		{
			name:    "scalar_operator_rejects_list",
			mutate:  func(q *Query) { q.Where = []Predicate{{Column: "day", Op: OpGt, Value: []any{"2024-06-01"}}} },
			wantErr: "scalar",
		},
		{
			name: "contradictory_equalities",
			mutate: func(q *Query) {
				q.Where = []Predicate{
					{Column: "type", Op: OpEq, Value: "impression"},
					{Column: "type", Op: OpEq, Value: "click"},
				}
			},
			wantErr: "contradictory",
		},
		{
			name:    "predicate_with_empty_column",
			mutate:  func(q *Query) { q.Where = []Predicate{{Op: OpEq, Value: "x"}} },
			wantErr: "empty column",
		},
		{
			name:    "negative_limit",
			mutate:  func(q *Query) { n := -1; q.Limit = &n },
			wantErr: "negative limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base()
			tt.mutate(q)
			err := q.Validate("events")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var malformed *MalformedQueryError
			assert.ErrorAs(t, err, &malformed)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestQuery_ValidateAllowsEmptyFrom(t *testing.T) {
	q := &Query{ID: "q1", Select: []SelectItem{{Agg: AggCount, Column: "*"}}}
	assert.NoError(t, q.Validate("events"))
}

func TestQuery_ValidateAllowsRepeatedEqualEqualities(t *testing.T) {
	q := &Query{
		ID:     "q1",
		Select: []SelectItem{{Agg: AggCount, Column: "*"}},
		Where: []Predicate{
			{Column: "publisher_id", Op: OpEq, Value: json.Number("10")},
			{Column: "publisher_id", Op: OpEq, Value: json.Number("10.0")},
		},
	}
	assert.NoError(t, q.Validate("events"))
}

func TestQuery_Aggregates(t *testing.T) {
	q := &Query{
		Select: []SelectItem{
			{Column: "day"},
			{Agg: AggSum, Column: "bid_price"},
			{Agg: AggCount, Column: "*"},
		},
	}
	assert.Equal(t, []SelectItem{
		{Agg: AggSum, Column: "bid_price"},
		{Agg: AggCount, Column: "*"},
	}, q.Aggregates())
}
