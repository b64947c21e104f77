package domain

import (
	"context"
	"time"
)

// Executor runs SQL against the analytical store. Implemented by the
// DuckDB engine; fakes stand in for it in tests.
type Executor interface {
	Exec(ctx context.Context, sql string) error
	Query(ctx context.Context, sql string) (*QueryResult, error)
}

// GuardPolicy decides whether a summary candidate is worth
// materializing. Admit returns false with a reason when the candidate's
// dimensions would explode the summary's row count (high-cardinality
// grouping with no narrowing constant filter). Implementations must be
// deterministic functions of their arguments.
type GuardPolicy interface {
	Admit(dims []string, constants []ConstantFilter, stats *TableStats) (bool, string)
}

// CatalogStore persists merged summary specs to the metastore.
type CatalogStore interface {
	ReplaceCatalog(ctx context.Context, specs []*SummarySpec) error
	ListSpecs(ctx context.Context) ([]*SummarySpec, error)
}

// RunRecord is one executed query in the run history.
type RunRecord struct {
	RunID      string
	QueryID    string
	Routed     bool
	Target     string
	SQL        string
	Status     string // "ok" or "error"
	Error      string
	RowCount   int
	Duration   time.Duration
	ExecutedAt time.Time
}

// RunHistoryStore persists per-query run records.
type RunHistoryStore interface {
	Insert(ctx context.Context, rec *RunRecord) error
	ListByRun(ctx context.Context, runID string) ([]*RunRecord, error)
}
