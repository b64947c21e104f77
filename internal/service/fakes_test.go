package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"duck-rollup/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExec records every statement and serves a scripted query result.
type fakeExec struct {
	mu      sync.Mutex
	execs   []string
	queries []string

	execErr  func(sql string) error
	queryErr func(sql string) error
	result   *domain.QueryResult
}

func (f *fakeExec) Exec(_ context.Context, sql string) error {
	f.mu.Lock()
	f.execs = append(f.execs, sql)
	f.mu.Unlock()
	if f.execErr != nil {
		return f.execErr(sql)
	}
	return nil
}

func (f *fakeExec) execCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.execs)
}

func (f *fakeExec) Query(_ context.Context, sql string) (*domain.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	f.mu.Unlock()
	if f.queryErr != nil {
		if err := f.queryErr(sql); err != nil {
			return nil, err
		}
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.QueryResult{}, nil
}

// memStore is an in-memory CatalogStore.
type memStore struct {
	mu         sync.Mutex
	specs      []*domain.SummarySpec
	replaced   int
	replaceErr error
	listErr    error
}

func (s *memStore) ReplaceCatalog(_ context.Context, specs []*domain.SummarySpec) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append([]*domain.SummarySpec(nil), specs...)
	s.replaced++
	return nil
}

func (s *memStore) ListSpecs(_ context.Context) ([]*domain.SummarySpec, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.SummarySpec(nil), s.specs...), nil
}

// memHistory is an in-memory RunHistoryStore.
type memHistory struct {
	mu        sync.Mutex
	recs      []*domain.RunRecord
	insertErr error
}

func (h *memHistory) Insert(_ context.Context, rec *domain.RunRecord) error {
	if h.insertErr != nil {
		return h.insertErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
	return nil
}

func (h *memHistory) ListByRun(_ context.Context, runID string) ([]*domain.RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*domain.RunRecord
	for _, rec := range h.recs {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func adStats() *domain.TableStats {
	return &domain.TableStats{
		Table: "events",
		Rows:  1_000_000,
		Distinct: map[string]int64{
			"type":         4,
			"country":      50,
			"day":          30,
			"user_id":      500_000,
			"publisher_id": 200,
		},
	}
}

func sumByDay(id string) *domain.Query {
	return &domain.Query{
		ID:      id,
		Select:  []domain.SelectItem{{Column: "day"}, {Agg: domain.AggSum, Column: "bid_price"}},
		From:    "events",
		Where:   []domain.Predicate{{Column: "type", Op: domain.OpEq, Value: "impression"}},
		GroupBy: []string{"day"},
	}
}

func countByDay(id string) *domain.Query {
	return &domain.Query{
		ID:      id,
		Select:  []domain.SelectItem{{Column: "day"}, {Agg: domain.AggCount, Column: "*"}},
		From:    "events",
		Where:   []domain.Predicate{{Column: "type", Op: domain.OpEq, Value: "impression"}},
		GroupBy: []string{"day"},
	}
}

func sumByCountry(id string) *domain.Query {
	return &domain.Query{
		ID:      id,
		Select:  []domain.SelectItem{{Column: "country"}, {Agg: domain.AggSum, Column: "total_price"}},
		From:    "events",
		GroupBy: []string{"country"},
	}
}

func sumByUser(id string) *domain.Query {
	return &domain.Query{
		ID:      id,
		Select:  []domain.SelectItem{{Column: "user_id"}, {Agg: domain.AggSum, Column: "bid_price"}},
		From:    "events",
		GroupBy: []string{"user_id"},
	}
}

func likeQuery(id string) *domain.Query {
	return &domain.Query{
		ID:      id,
		Select:  []domain.SelectItem{{Column: "day"}, {Agg: domain.AggCount, Column: "*"}},
		From:    "events",
		Where:   []domain.Predicate{{Column: "country", Op: domain.Operator("like"), Value: "U%"}},
		GroupBy: []string{"day"},
	}
}
