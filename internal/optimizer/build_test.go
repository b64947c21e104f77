package optimizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-rollup/internal/domain"
)

func TestBuildCandidate(t *testing.T) {
	q := &domain.Query{
		ID: "q1",
		Select: []domain.SelectItem{
			{Column: "country"},
			{Agg: domain.AggSum, Column: "bid_price"},
		},
		From:    "events",
		GroupBy: []string{"country"},
		Where: []domain.Predicate{
			{Column: "day", Op: domain.OpBetween, Value: []any{"2024-06-01", "2024-06-07"}},
			{Column: "type", Op: domain.OpEq, Value: "impression"},
		},
	}

	cand, reason, err := BuildCandidate(q, AdmitAll{}, nil)
	require.NoError(t, err)
	require.Empty(t, reason)
	require.NotNil(t, cand)

	assert.Equal(t, "q1", cand.QueryID)
	assert.Equal(t, []string{"country", "day"}, cand.Dimensions, "dimensions are sorted")
	assert.Equal(t, []domain.ConstantFilter{{Column: "type", Value: "impression"}}, cand.Constants)
	assert.Equal(t, []domain.AggColumn{
		{Kind: domain.AggColSum, Column: "bid_price"},
		{Kind: domain.AggColRowCount},
	}, cand.Aggregates)
	assert.NotEmpty(t, cand.Signature)
}

func TestBuildCandidate_RequiredAggregates(t *testing.T) {
	tests := []struct {
		name   string
		items  []domain.SelectItem
		want   []domain.AggColumn
	}{
		{
			name:   "count_needs_only_row_count",
			items: []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
			want:   []domain.AggColumn{{Kind: domain.AggColRowCount}},
		},
		{
			name:   "avg_needs_sum_and_row_count",
			items: []domain.SelectItem{{Agg: domain.AggAvg, Column: "bid_price"}},
			want: []domain.AggColumn{
				{Kind: domain.AggColSum, Column: "bid_price"},
				{Kind: domain.AggColRowCount},
			},
		},
		{
			name: "min_max_map_one_to_one",
			items: []domain.SelectItem{
				{Agg: domain.AggMin, Column: "total_price"},
				{Agg: domain.AggMax, Column: "total_price"},
			},
			want: []domain.AggColumn{
				{Kind: domain.AggColMin, Column: "total_price"},
				{Kind: domain.AggColMax, Column: "total_price"},
				{Kind: domain.AggColRowCount},
			},
		},
		{
			name: "sum_and_avg_on_same_column_share_one_sum",
			items: []domain.SelectItem{
				{Agg: domain.AggSum, Column: "bid_price"},
				{Agg: domain.AggAvg, Column: "bid_price"},
			},
			want: []domain.AggColumn{
				{Kind: domain.AggColSum, Column: "bid_price"},
				{Kind: domain.AggColRowCount},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &domain.Query{ID: "q1", Select: tt.items, From: "events"}
			cand, _, err := BuildCandidate(q, AdmitAll{}, nil)
			require.NoError(t, err)
			require.NotNil(t, cand)
			assert.Equal(t, tt.want, cand.Aggregates)
		})
	}
}

func TestBuildCandidate_GuardVetoIsNotAnError(t *testing.T) {
	q := &domain.Query{
		ID:      "q1",
		Select:  []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
		From:    "events",
		GroupBy: []string{"user_id"},
	}
	stats := &domain.TableStats{Table: "events", Rows: 1_000_000, Distinct: map[string]int64{"user_id": 500_000}}

	cand, reason, err := BuildCandidate(q, NewStatsGuard(GuardConfig{}), stats)
	require.NoError(t, err)
	assert.Nil(t, cand)
	assert.Contains(t, reason, "user_id")
}

func TestBuildCandidate_SignatureIgnoresPredicateOrder(t *testing.T) {
	base := []domain.Predicate{
		{Column: "type", Op: domain.OpEq, Value: "impression"},
		{Column: "country", Op: domain.OpEq, Value: "US"},
		{Column: "day", Op: domain.OpBetween, Value: []any{"2024-06-01", "2024-06-07"}},
	}
	reversed := []domain.Predicate{base[2], base[1], base[0]}

	q1 := &domain.Query{ID: "q1", Select: []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}}, From: "events", Where: base}
	q2 := &domain.Query{ID: "q2", Select: []domain.SelectItem{{Agg: domain.AggSum, Column: "bid_price"}}, From: "events", Where: reversed}

	c1, _, err := BuildCandidate(q1, AdmitAll{}, nil)
	require.NoError(t, err)
	c2, _, err := BuildCandidate(q2, AdmitAll{}, nil)
	require.NoError(t, err)

	assert.Equal(t, c1.Signature, c2.Signature)
}

func TestBuildCandidate_SignatureSeparatesDimsFromConstants(t *testing.T) {
	// group by type vs constant type=impression must never collide.
	q1 := &domain.Query{
		ID:      "q1",
		Select:  []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
		From:    "events",
		GroupBy: []string{"type"},
	}
	q2 := &domain.Query{
		ID:     "q2",
		Select: []domain.SelectItem{{Agg: domain.AggCount, Column: "*"}},
		From:   "events",
		Where:  []domain.Predicate{{Column: "type", Op: domain.OpEq, Value: "impression"}},
	}

	c1, _, err := BuildCandidate(q1, AdmitAll{}, nil)
	require.NoError(t, err)
	c2, _, err := BuildCandidate(q2, AdmitAll{}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, c1.Signature, c2.Signature)
}

func TestBuildCandidate_UnknownAggregate(t *testing.T) {
	q := &domain.Query{
		ID:     "q1",
		Select: []domain.SelectItem{{Agg: domain.AggFunc("MEDIAN"), Column: "bid_price"}},
		From:   "events",
	}

	_, _, err := BuildCandidate(q, AdmitAll{}, nil)
	require.Error(t, err)

	var malformed *domain.MalformedQueryError
	assert.True(t, errors.As(err, &malformed))
}
