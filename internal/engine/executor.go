package engine

import (
	"context"
	"database/sql"
	"fmt"

	"duck-rollup/internal/domain"
)

// Compile-time check.
var _ domain.Executor = (*Executor)(nil)

// Executor wraps a *sql.DB to implement domain.Executor.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates an Executor over an open DuckDB connection.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Exec executes a statement and discards any result.
func (e *Executor) Exec(ctx context.Context, sqlText string) error {
	if _, err := e.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

// Query executes a query and scans the full result set.
func (e *Executor) Query(ctx context.Context, sqlText string) (*domain.QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	return result, nil
}

// scanRows scans all rows into a QueryResult.
func scanRows(rows *sql.Rows) (*domain.QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		// Convert byte slices to strings for JSON serialization
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Columns:  cols,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}
