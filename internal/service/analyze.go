// Package service orchestrates the optimizer pipeline: analyze a
// workload into summary specs, materialize the summary tables in
// DuckDB, and route and execute queries against the resulting catalog.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/optimizer"
)

// Per-query statuses used across analysis and run reports.
const (
	StatusPlanned = "planned"
	StatusSkipped = "skipped"
	StatusOK      = "ok"
	StatusError   = "error"
)

// QueryAnalysis is the per-query outcome of workload analysis.
type QueryAnalysis struct {
	QueryID string `json:"query_id"`
	Status  string `json:"status"`
	// Table names the summary spec that covers the query when Status is
	// planned.
	Table  string `json:"table,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AnalyzeReport pairs the merged specs with per-query outcomes in
// workload order.
type AnalyzeReport struct {
	Specs   []*domain.SummarySpec `json:"specs"`
	Queries []QueryAnalysis       `json:"queries"`
}

// Analyzer turns workloads into merged summary specs and persists them
// as the metastore catalog.
type Analyzer struct {
	guard       domain.GuardPolicy
	store       domain.CatalogStore
	mainTable   string
	parallelism int
	logger      *slog.Logger
}

// NewAnalyzer creates an Analyzer. store may be nil to skip
// persistence. parallelism bounds concurrent query analysis; values
// below 1 fall back to 4.
func NewAnalyzer(guard domain.GuardPolicy, store domain.CatalogStore, mainTable string, parallelism int, logger *slog.Logger) *Analyzer {
	if parallelism < 1 {
		parallelism = 4
	}
	return &Analyzer{
		guard:       guard,
		store:       store,
		mainTable:   mainTable,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Analyze classifies every query and merges the surviving candidates
// into summary specs, then replaces the persisted catalog. Malformed
// queries, unsupported operators, and guard rejections are recorded per
// query; they never abort the batch. The report lists queries in
// workload order and specs in first-contribution order.
func (a *Analyzer) Analyze(ctx context.Context, queries []*domain.Query, stats *domain.TableStats) (*AnalyzeReport, error) {
	cands := make([]*optimizer.Candidate, len(queries))
	reasons := make([]string, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q := queries[i]
			if err := q.Validate(a.mainTable); err != nil {
				errs[i] = err
				return nil // per-query failures stay per-query
			}
			cands[i], reasons[i], errs[i] = optimizer.BuildCandidate(q, a.guard, stats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze workload: %w", err)
	}

	specs := optimizer.Merge(cands)
	tableBySig := make(map[string]string, len(specs))
	for _, spec := range specs {
		tableBySig[spec.Signature] = spec.Table
	}

	report := &AnalyzeReport{Specs: specs, Queries: make([]QueryAnalysis, len(queries))}
	for i, q := range queries {
		qa := QueryAnalysis{QueryID: q.ID}
		switch {
		case errs[i] != nil:
			qa.Status = StatusError
			qa.Error = errs[i].Error()
			a.logger.Warn("query analysis failed", "query", q.ID, "error", errs[i])
		case cands[i] == nil:
			qa.Status = StatusSkipped
			qa.Reason = reasons[i]
			a.logger.Info("summary skipped", "query", q.ID, "reason", reasons[i])
		default:
			qa.Status = StatusPlanned
			qa.Table = tableBySig[cands[i].Signature]
		}
		report.Queries[i] = qa
	}

	if a.store != nil {
		if err := a.store.ReplaceCatalog(ctx, specs); err != nil {
			return nil, fmt.Errorf("persist catalog: %w", err)
		}
	}

	a.logger.Info("workload analyzed", "queries", len(queries), "specs", len(specs))
	return report, nil
}
