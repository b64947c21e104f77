package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/optimizer"
)

func TestAnalyzer_MergesAndPersists(t *testing.T) {
	store := &memStore{}
	a := NewAnalyzer(optimizer.AdmitAll{}, store, "events", 0, testLogger())

	queries := []*domain.Query{sumByDay("q1"), countByDay("q2"), sumByCountry("q3")}
	report, err := a.Analyze(context.Background(), queries, adStats())
	require.NoError(t, err)

	// q1 and q2 share dimensions and constants, so they share one spec.
	require.Len(t, report.Specs, 2)
	assert.Equal(t, []string{"q1", "q2"}, report.Specs[0].SourceQueryIDs)
	assert.Equal(t, []string{"q3"}, report.Specs[1].SourceQueryIDs)

	require.Len(t, report.Queries, 3)
	for _, qa := range report.Queries {
		assert.Equal(t, StatusPlanned, qa.Status)
	}
	assert.Equal(t, report.Specs[0].Table, report.Queries[0].Table)
	assert.Equal(t, report.Queries[0].Table, report.Queries[1].Table)
	assert.NotEqual(t, report.Queries[0].Table, report.Queries[2].Table)

	assert.Equal(t, 1, store.replaced)
	assert.Equal(t, report.Specs, store.specs)
}

func TestAnalyzer_RecordsPerQueryFailures(t *testing.T) {
	store := &memStore{}
	a := NewAnalyzer(optimizer.AdmitAll{}, store, "events", 0, testLogger())

	bare := &domain.Query{
		ID:     "q3",
		Select: []domain.SelectItem{{Column: "day"}},
		From:   "events",
	}
	queries := []*domain.Query{sumByDay("q1"), likeQuery("q2"), bare}
	report, err := a.Analyze(context.Background(), queries, adStats())
	require.NoError(t, err)

	require.Len(t, report.Queries, 3)
	assert.Equal(t, StatusPlanned, report.Queries[0].Status)

	assert.Equal(t, StatusError, report.Queries[1].Status)
	assert.Contains(t, report.Queries[1].Error, "like")

	assert.Equal(t, StatusError, report.Queries[2].Status)
	assert.Contains(t, report.Queries[2].Error, "group_by")

	// Failed queries contribute no specs; the good one still does.
	require.Len(t, report.Specs, 1)
	assert.Equal(t, []string{"q1"}, report.Specs[0].SourceQueryIDs)
}

func TestAnalyzer_GuardRejectionIsSkipNotError(t *testing.T) {
	store := &memStore{}
	guard := optimizer.NewStatsGuard(optimizer.GuardConfig{})
	a := NewAnalyzer(guard, store, "events", 0, testLogger())

	queries := []*domain.Query{sumByUser("q1"), sumByDay("q2")}
	report, err := a.Analyze(context.Background(), queries, adStats())
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, report.Queries[0].Status)
	assert.Contains(t, report.Queries[0].Reason, "user_id")
	assert.Empty(t, report.Queries[0].Table)

	assert.Equal(t, StatusPlanned, report.Queries[1].Status)
	require.Len(t, report.Specs, 1)
	assert.Equal(t, []string{"day"}, report.Specs[0].Dimensions)
}

func TestAnalyzer_PersistFailureFailsTheBatch(t *testing.T) {
	store := &memStore{replaceErr: errors.New("disk full")}
	a := NewAnalyzer(optimizer.AdmitAll{}, store, "events", 0, testLogger())

	_, err := a.Analyze(context.Background(), []*domain.Query{sumByDay("q1")}, adStats())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist catalog")
}

func TestAnalyzer_NilStoreSkipsPersistence(t *testing.T) {
	a := NewAnalyzer(optimizer.AdmitAll{}, nil, "events", 2, testLogger())

	report, err := a.Analyze(context.Background(), []*domain.Query{sumByDay("q1")}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Specs, 1)
}

func TestAnalyzer_EmptyWorkload(t *testing.T) {
	store := &memStore{}
	a := NewAnalyzer(optimizer.AdmitAll{}, store, "events", 0, testLogger())

	report, err := a.Analyze(context.Background(), nil, adStats())
	require.NoError(t, err)
	assert.Empty(t, report.Specs)
	assert.Empty(t, report.Queries)
	// An empty workload still replaces the catalog.
	assert.Equal(t, 1, store.replaced)
}

func TestAnalyzer_ReportIsDeterministic(t *testing.T) {
	queries := []*domain.Query{
		sumByDay("q1"), sumByCountry("q2"), countByDay("q3"),
		sumByUser("q4"), likeQuery("q5"),
	}
	guard := optimizer.NewStatsGuard(optimizer.GuardConfig{})

	first, err := NewAnalyzer(guard, nil, "events", 4, testLogger()).
		Analyze(context.Background(), queries, adStats())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next, err := NewAnalyzer(guard, nil, "events", 4, testLogger()).
			Analyze(context.Background(), queries, adStats())
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}
