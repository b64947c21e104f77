package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"duck-rollup/internal/domain"
)

// Compile-time check.
var _ domain.CatalogStore = (*CatalogRepo)(nil)

// CatalogRepo persists merged summary specs in the SQLite metastore.
// The stored catalog mirrors the last successful analysis: ReplaceCatalog
// swaps the whole set atomically and ListSpecs returns it in the
// original first-contribution order.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ReplaceCatalog replaces the stored catalog with specs, preserving
// their order, in one transaction.
func (r *CatalogRepo) ReplaceCatalog(ctx context.Context, specs []*domain.SummarySpec) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM summary_specs`); err != nil {
		return mapDBError(err)
	}

	for i, spec := range specs {
		dims, err := json.Marshal(spec.Dimensions)
		if err != nil {
			return fmt.Errorf("marshal dimensions of %q: %w", spec.Table, err)
		}
		constants, err := json.Marshal(spec.Constants)
		if err != nil {
			return fmt.Errorf("marshal constants of %q: %w", spec.Table, err)
		}
		aggs, err := json.Marshal(spec.Aggregates)
		if err != nil {
			return fmt.Errorf("marshal aggregates of %q: %w", spec.Table, err)
		}
		sources, err := json.Marshal(spec.SourceQueryIDs)
		if err != nil {
			return fmt.Errorf("marshal source ids of %q: %w", spec.Table, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO summary_specs (signature, table_name, position, dimensions, constants, aggregates, source_query_ids)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, spec.Signature, spec.Table, i, string(dims), string(constants), string(aggs), string(sources))
		if err != nil {
			return mapDBError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	return nil
}

// ListSpecs returns the stored catalog in its original order.
func (r *CatalogRepo) ListSpecs(ctx context.Context) ([]*domain.SummarySpec, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT signature, table_name, dimensions, constants, aggregates, source_query_ids
		FROM summary_specs
		ORDER BY position
	`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var specs []*domain.SummarySpec
	for rows.Next() {
		var (
			spec                            domain.SummarySpec
			dims, constants, aggs, sources string
		)
		if err := rows.Scan(&spec.Signature, &spec.Table, &dims, &constants, &aggs, &sources); err != nil {
			return nil, mapDBError(err)
		}

		if err := json.Unmarshal([]byte(dims), &spec.Dimensions); err != nil {
			return nil, fmt.Errorf("decode dimensions of %q: %w", spec.Table, err)
		}
		if err := decodeConstants(constants, &spec.Constants); err != nil {
			return nil, fmt.Errorf("decode constants of %q: %w", spec.Table, err)
		}
		if err := json.Unmarshal([]byte(aggs), &spec.Aggregates); err != nil {
			return nil, fmt.Errorf("decode aggregates of %q: %w", spec.Table, err)
		}
		if err := json.Unmarshal([]byte(sources), &spec.SourceQueryIDs); err != nil {
			return nil, fmt.Errorf("decode source ids of %q: %w", spec.Table, err)
		}
		specs = append(specs, &spec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err)
	}
	return specs, nil
}

// decodeConstants decodes constant filters with exact numeric capture so
// a reloaded catalog matches queries the same way the in-memory one did.
func decodeConstants(data string, out *[]domain.ConstantFilter) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	return dec.Decode(out)
}
