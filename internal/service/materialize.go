package service

import (
	"context"
	"log/slog"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/sqlgen"
)

// MaterializeFailure records a summary table whose build failed.
type MaterializeFailure struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

// Materializer builds summary tables in DuckDB from merged specs.
type Materializer struct {
	exec      domain.Executor
	mainTable string
	logger    *slog.Logger
}

// NewMaterializer creates a Materializer that aggregates mainTable.
func NewMaterializer(exec domain.Executor, mainTable string, logger *slog.Logger) *Materializer {
	return &Materializer{exec: exec, mainTable: mainTable, logger: logger}
}

// Materialize creates one summary table per spec and returns the specs
// whose tables exist afterwards. A failed build drops only its own
// spec: queries that would have used it fall back to the main table.
func (m *Materializer) Materialize(ctx context.Context, specs []*domain.SummarySpec) ([]*domain.SummarySpec, []MaterializeFailure) {
	live := make([]*domain.SummarySpec, 0, len(specs))
	var failures []MaterializeFailure

	for _, spec := range specs {
		ddl, err := sqlgen.CreateSummaryTable(spec, m.mainTable)
		if err == nil {
			err = m.exec.Exec(ctx, ddl)
		}
		if err != nil {
			m.logger.Warn("summary build failed", "table", spec.Table, "error", err)
			failures = append(failures, MaterializeFailure{Table: spec.Table, Error: err.Error()})
			continue
		}
		m.logger.Info("summary built", "table", spec.Table, "dimensions", len(spec.Dimensions))
		live = append(live, spec)
	}
	return live, failures
}

// Sweep drops summary tables left over from a previous catalog. Drop
// failures are logged and otherwise ignored.
func (m *Materializer) Sweep(ctx context.Context, previous []string, current []*domain.SummarySpec) {
	keep := make(map[string]struct{}, len(current))
	for _, spec := range current {
		keep[spec.Table] = struct{}{}
	}

	for _, table := range previous {
		if _, ok := keep[table]; ok {
			continue
		}
		ddl, err := sqlgen.DropTable(table)
		if err == nil {
			err = m.exec.Exec(ctx, ddl)
		}
		if err != nil {
			m.logger.Warn("stale summary drop failed", "table", table, "error", err)
			continue
		}
		m.logger.Info("stale summary dropped", "table", table)
	}
}
