package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/optimizer"
	"duck-rollup/internal/router"
)

// RunnerDeps holds dependencies for Runner.
type RunnerDeps struct {
	Analyzer     *Analyzer
	Materializer *Materializer
	Executor     domain.Executor
	Catalog      domain.CatalogStore    // optional
	History      domain.RunHistoryStore // optional
	MainTable    string
	Logger       *slog.Logger
}

// Runner drives the pipeline end to end and answers routing against the
// current catalog. Router swaps are guarded, so one Runner serves
// concurrent API handlers.
type Runner struct {
	analyzer  *Analyzer
	mat       *Materializer
	exec      domain.Executor
	catalog   domain.CatalogStore
	history   domain.RunHistoryStore
	mainTable string
	logger    *slog.Logger
	stats     *domain.RoutingStats

	mu     sync.RWMutex
	router *router.Router
}

// NewRunner creates a Runner routing against an empty catalog. Call
// Bootstrap to load persisted specs.
func NewRunner(deps RunnerDeps) *Runner {
	return &Runner{
		analyzer:  deps.Analyzer,
		mat:       deps.Materializer,
		exec:      deps.Executor,
		catalog:   deps.Catalog,
		history:   deps.History,
		mainTable: deps.MainTable,
		logger:    deps.Logger,
		stats:     &domain.RoutingStats{},
		router:    router.New(optimizer.NewCatalog(nil), deps.MainTable),
	}
}

// Bootstrap loads the persisted catalog and routes against it. The
// summary tables themselves are expected from the run that persisted
// the specs; Refresh rebuilds them.
func (r *Runner) Bootstrap(ctx context.Context) error {
	if r.catalog == nil {
		return nil
	}
	specs, err := r.catalog.ListSpecs(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	r.swap(specs)
	r.logger.Info("catalog loaded", "specs", len(specs))
	return nil
}

func (r *Runner) swap(specs []*domain.SummarySpec) {
	r.mu.Lock()
	r.router = router.New(optimizer.NewCatalog(specs), r.mainTable)
	r.mu.Unlock()
}

func (r *Runner) currentRouter() *router.Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.router
}

// Catalog returns the specs the Runner currently routes against.
func (r *Runner) Catalog() []*domain.SummarySpec {
	return r.currentRouter().Catalog().Specs()
}

// StatsSnapshot returns routing counters accumulated since start.
func (r *Runner) StatsSnapshot() domain.RoutingStatsSnapshot {
	return r.stats.Snapshot()
}

// Analyze runs the analyze and materialize phases for a workload, swaps
// the router to the new catalog, and drops summary tables the previous
// catalog no longer needs.
func (r *Runner) Analyze(ctx context.Context, queries []*domain.Query, stats *domain.TableStats) (*AnalyzeReport, []MaterializeFailure, error) {
	previous := tableNames(r.Catalog())

	report, err := r.analyzer.Analyze(ctx, queries, stats)
	if err != nil {
		return nil, nil, err
	}

	live, failures := r.mat.Materialize(ctx, report.Specs)
	r.mat.Sweep(ctx, previous, live)
	r.swap(live)
	return report, failures, nil
}

// Refresh rebuilds every persisted summary table from the current main
// table contents and routes against the specs that built.
func (r *Runner) Refresh(ctx context.Context) ([]MaterializeFailure, error) {
	if r.catalog == nil {
		return nil, nil
	}
	specs, err := r.catalog.ListSpecs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	live, failures := r.mat.Materialize(ctx, specs)
	r.swap(live)
	r.logger.Info("summaries refreshed", "built", len(live), "failed", len(failures))
	return failures, nil
}

func tableNames(specs []*domain.SummarySpec) []string {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Table
	}
	return names
}

// RunOptions control workload execution.
type RunOptions struct {
	// OutDir receives one CSV per query plus routing_report.json. Empty
	// disables file output.
	OutDir string
	// IncludeResults attaches result rows to the report, for API
	// responses.
	IncludeResults bool
}

// QueryRun is the execution record for one workload query.
type QueryRun struct {
	QueryID    string              `json:"query_id"`
	Routed     bool                `json:"routed"`
	Target     string              `json:"target,omitempty"`
	SQL        string              `json:"sql,omitempty"`
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	RowCount   int                 `json:"row_count"`
	DurationMS int64               `json:"duration_ms"`
	Output     string              `json:"output,omitempty"`
	Result     *domain.QueryResult `json:"result,omitempty"`
}

// RunReport is the outcome of one workload run.
type RunReport struct {
	RunID    string                      `json:"run_id"`
	Analysis *AnalyzeReport              `json:"analysis"`
	Failures []MaterializeFailure        `json:"materialize_failures,omitempty"`
	Queries  []QueryRun                  `json:"queries"`
	Stats    domain.RoutingStatsSnapshot `json:"stats"`
}

// Run executes the full pipeline for a workload: analyze, materialize,
// then route and execute every query. Per-query failures are recorded
// and the run continues. Routed and fallback results carry identical
// column headers, so downstream consumers never see which path ran.
func (r *Runner) Run(ctx context.Context, queries []*domain.Query, stats *domain.TableStats, opts RunOptions) (*RunReport, error) {
	analysis, failures, err := r.Analyze(ctx, queries, stats)
	if err != nil {
		return nil, err
	}

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	run := &RunReport{
		RunID:    uuid.New().String(),
		Analysis: analysis,
		Failures: failures,
		Queries:  make([]QueryRun, 0, len(queries)),
	}
	runStats := &domain.RoutingStats{}
	rt := r.currentRouter()

	for _, q := range queries {
		run.Queries = append(run.Queries, r.executeOne(ctx, rt, q, opts, run.RunID, runStats))
	}
	run.Stats = runStats.Snapshot()

	if opts.OutDir != "" {
		if err := writeRoutingReport(filepath.Join(opts.OutDir, "routing_report.json"), run); err != nil {
			return nil, err
		}
	}

	r.logger.Info("run finished", "run", run.RunID, "queries", len(run.Queries),
		"summary_hits", run.Stats.SummaryTableHits, "fallbacks", run.Stats.MainTableQueries)
	return run, nil
}

func (r *Runner) executeOne(ctx context.Context, rt *router.Router, q *domain.Query, opts RunOptions, runID string, runStats *domain.RoutingStats) QueryRun {
	qr := QueryRun{QueryID: q.ID, Status: StatusOK}

	routed, err := rt.Route(q)
	if err != nil {
		qr.Status = StatusError
		qr.Error = err.Error()
		r.logger.Warn("query not routable", "query", q.ID, "error", err)
		r.record(ctx, runID, qr)
		return qr
	}
	qr.Routed = routed.Routed
	qr.Target = routed.Target
	qr.SQL = routed.SQL
	runStats.Record(routed.Routed)
	r.stats.Record(routed.Routed)

	start := time.Now()
	res, err := r.exec.Query(ctx, routed.SQL)
	qr.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		qr.Status = StatusError
		qr.Error = err.Error()
		r.logger.Warn("query failed", "query", q.ID, "target", qr.Target, "error", err)
		r.record(ctx, runID, qr)
		return qr
	}
	qr.RowCount = res.RowCount
	if opts.IncludeResults {
		qr.Result = res
	}

	if opts.OutDir != "" {
		path := filepath.Join(opts.OutDir, q.ID+".csv")
		if err := writeResultCSV(path, res); err != nil {
			qr.Status = StatusError
			qr.Error = err.Error()
			r.record(ctx, runID, qr)
			return qr
		}
		qr.Output = path
	}

	r.logger.Info("query executed", "query", q.ID, "target", qr.Target,
		"routed", qr.Routed, "rows", qr.RowCount, "ms", qr.DurationMS)
	r.record(ctx, runID, qr)
	return qr
}

// record persists the run record; history is best effort.
func (r *Runner) record(ctx context.Context, runID string, qr QueryRun) {
	if r.history == nil {
		return
	}
	rec := &domain.RunRecord{
		RunID:      runID,
		QueryID:    qr.QueryID,
		Routed:     qr.Routed,
		Target:     qr.Target,
		SQL:        qr.SQL,
		Status:     qr.Status,
		Error:      qr.Error,
		RowCount:   qr.RowCount,
		Duration:   time.Duration(qr.DurationMS) * time.Millisecond,
		ExecutedAt: time.Now().UTC(),
	}
	if err := r.history.Insert(ctx, rec); err != nil {
		r.logger.Warn("run history insert failed", "query", qr.QueryID, "error", err)
	}
}

// QueryRoute is the explain-only routing outcome for one query.
type QueryRoute struct {
	QueryID string `json:"query_id"`
	Routed  bool   `json:"routed"`
	Target  string `json:"target,omitempty"`
	SQL     string `json:"sql,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Explain routes queries against the current catalog without executing
// them.
func (r *Runner) Explain(queries []*domain.Query) []QueryRoute {
	rt := r.currentRouter()
	routes := make([]QueryRoute, 0, len(queries))
	for _, q := range queries {
		res, err := rt.Route(q)
		if err != nil {
			routes = append(routes, QueryRoute{QueryID: q.ID, Error: err.Error()})
			continue
		}
		routes = append(routes, QueryRoute{QueryID: q.ID, Routed: res.Routed, Target: res.Target, SQL: res.SQL})
	}
	return routes
}
