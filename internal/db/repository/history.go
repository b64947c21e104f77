package repository

import (
	"context"
	"database/sql"
	"time"

	"duck-rollup/internal/domain"
)

// Compile-time check.
var _ domain.RunHistoryStore = (*RunHistoryRepo)(nil)

// RunHistoryRepo stores per-query execution records in SQLite.
type RunHistoryRepo struct {
	db *sql.DB
}

// NewRunHistoryRepo creates a new RunHistoryRepo.
func NewRunHistoryRepo(db *sql.DB) *RunHistoryRepo {
	return &RunHistoryRepo{db: db}
}

// Insert appends one run record.
func (r *RunHistoryRepo) Insert(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return domain.ErrValidation("run record is required")
	}
	if rec.RunID == "" || rec.QueryID == "" {
		return domain.ErrValidation("run record needs run_id and query_id")
	}
	executedAt := rec.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO run_history (run_id, query_id, routed, target, sql_text, status, error, row_count, duration_ms, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.QueryID, boolToInt(rec.Routed), rec.Target, rec.SQL, rec.Status,
		nullIfEmpty(rec.Error), rec.RowCount, rec.Duration.Milliseconds(), executedAt)
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

// ListByRun returns a run's records in execution order.
func (r *RunHistoryRepo) ListByRun(ctx context.Context, runID string) ([]*domain.RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, query_id, routed, target, sql_text, status, error, row_count, duration_ms, executed_at
		FROM run_history
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var recs []*domain.RunRecord
	for rows.Next() {
		var (
			rec        domain.RunRecord
			routed     int64
			errMsg     sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&rec.RunID, &rec.QueryID, &routed, &rec.Target, &rec.SQL,
			&rec.Status, &errMsg, &rec.RowCount, &durationMS, &rec.ExecutedAt); err != nil {
			return nil, mapDBError(err)
		}
		rec.Routed = routed != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if errMsg.Valid {
			rec.Error = errMsg.String
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err)
	}
	return recs, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
