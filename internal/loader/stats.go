package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/sqlgen"
)

// Stats computes the main table's row count and an approximate distinct
// count per column. approx_count_distinct (HyperLogLog) keeps this one
// cheap scan even on wide tables; exactness does not matter to the
// guard's threshold comparison.
func (l *Loader) Stats(ctx context.Context) (*domain.TableStats, error) {
	cols, err := l.columns(ctx)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %q has no columns", l.cfg.MainTable)
	}

	items := make([]string, 0, len(cols)+1)
	items = append(items, "COUNT(*)")
	for _, col := range cols {
		items = append(items, fmt.Sprintf("approx_count_distinct(%s)", sqlgen.QuoteIdentifier(col)))
	}

	statsSQL := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(items, ", "), sqlgen.QuoteIdentifier(l.cfg.MainTable))

	res, err := l.exec.Query(ctx, statsSQL)
	if err != nil {
		return nil, fmt.Errorf("compute statistics for %q: %w", l.cfg.MainTable, err)
	}
	if res.RowCount != 1 || len(res.Rows[0]) != len(cols)+1 {
		return nil, fmt.Errorf("statistics query for %q returned unexpected shape", l.cfg.MainTable)
	}

	row := res.Rows[0]
	rows, err := asInt64(row[0])
	if err != nil {
		return nil, fmt.Errorf("row count for %q: %w", l.cfg.MainTable, err)
	}

	stats := &domain.TableStats{
		Table:    l.cfg.MainTable,
		Rows:     rows,
		Distinct: make(map[string]int64, len(cols)),
	}
	for i, col := range cols {
		n, err := asInt64(row[i+1])
		if err != nil {
			return nil, fmt.Errorf("distinct count for %q.%q: %w", l.cfg.MainTable, col, err)
		}
		stats.Distinct[col] = n
	}

	l.logger.Info("computed table statistics", "table", l.cfg.MainTable, "rows", stats.Rows, "columns", len(cols))
	return stats, nil
}

// columns lists the table's column names in ordinal order.
func (l *Loader) columns(ctx context.Context) ([]string, error) {
	if err := sqlgen.ValidateIdentifier(l.cfg.MainTable); err != nil {
		return nil, fmt.Errorf("invalid main table name %q: %w", l.cfg.MainTable, err)
	}
	colsSQL := fmt.Sprintf(
		"SELECT column_name FROM information_schema.columns WHERE table_name = %s ORDER BY ordinal_position",
		sqlgen.QuoteLiteral(l.cfg.MainTable))

	res, err := l.exec.Query(ctx, colsSQL)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", l.cfg.MainTable, err)
	}

	cols := make([]string, 0, res.RowCount)
	for _, row := range res.Rows {
		if len(row) != 1 {
			continue
		}
		if name, ok := row[0].(string); ok {
			cols = append(cols, name)
		}
	}
	return cols, nil
}

// asInt64 normalizes the numeric types the driver may hand back for
// counts.
func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
