// Package loader builds the main events table from raw dataset parts and
// computes the column statistics the cardinality guard consumes.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/sqlgen"
)

// Config controls where the loader reads parts from and how the main
// table is laid out.
type Config struct {
	// DataDir holds events_part_*.parquet or events_part_*.csv files.
	// s3:// prefixes work once the engine has a storage secret.
	DataDir string
	// MainTable is the table name to build, usually "events".
	MainTable string
	// SortColumns order the table on disk so range filters prune row
	// groups by zonemap. Default: day, type, country, publisher_id.
	SortColumns []string
}

// Loader builds and inspects the main table.
type Loader struct {
	exec   domain.Executor
	cfg    Config
	logger *slog.Logger
}

// New creates a Loader.
func New(exec domain.Executor, cfg Config, logger *slog.Logger) *Loader {
	if len(cfg.SortColumns) == 0 {
		cfg.SortColumns = []string{"day", "type", "country", "publisher_id"}
	}
	return &Loader{exec: exec, cfg: cfg, logger: logger}
}

// rawColumns is the schema of the dataset part files. CSV parts arrive
// untyped; parquet parts may carry types but go through the same casts.
var rawColumns = []string{
	"ts", "type", "auction_id", "advertiser_id", "publisher_id",
	"bid_price", "user_id", "total_price", "country",
}

// Build creates (or replaces) the main table from the part files in
// DataDir: casts the raw columns, derives the week/day/hour/minute time
// columns from ts, and sorts by the configured columns.
func (l *Loader) Build(ctx context.Context) error {
	source, err := l.sourceRelation()
	if err != nil {
		return err
	}

	buildSQL, err := l.buildSQL(source)
	if err != nil {
		return err
	}

	l.logger.Info("building main table", "table", l.cfg.MainTable, "source", l.cfg.DataDir)
	if err := l.exec.Exec(ctx, buildSQL); err != nil {
		return fmt.Errorf("build main table %q: %w", l.cfg.MainTable, err)
	}
	return nil
}

// sourceRelation picks the part format: parquet when parquet parts
// exist, CSV otherwise. Remote s3:// locations default to parquet (no
// listing without a full S3 client); override by pointing DataDir at a
// CSV glob explicitly.
func (l *Loader) sourceRelation() (string, error) {
	dir := strings.TrimRight(l.cfg.DataDir, "/")

	if strings.HasPrefix(dir, "s3://") {
		return fmt.Sprintf("read_parquet(%s)", sqlgen.QuoteLiteral(dir+"/events_part_*.parquet")), nil
	}

	parquet, err := filepath.Glob(filepath.Join(dir, "events_part_*.parquet"))
	if err != nil {
		return "", fmt.Errorf("scan data dir %q: %w", dir, err)
	}
	if len(parquet) > 0 {
		return fmt.Sprintf("read_parquet(%s)", sqlgen.QuoteLiteral(filepath.Join(dir, "events_part_*.parquet"))), nil
	}

	csv, err := filepath.Glob(filepath.Join(dir, "events_part_*.csv"))
	if err != nil {
		return "", fmt.Errorf("scan data dir %q: %w", dir, err)
	}
	if len(csv) > 0 {
		return csvRelation(filepath.Join(dir, "events_part_*.csv")), nil
	}

	return "", domain.ErrNotFound("no events_part_*.parquet or events_part_*.csv files in %q", dir)
}

// csvRelation reads CSV parts with a pinned all-VARCHAR schema so type
// casting stays in one place and malformed numerics become NULL instead
// of failing the load.
func csvRelation(pattern string) string {
	cols := make([]string, 0, len(rawColumns))
	for _, c := range rawColumns {
		cols = append(cols, fmt.Sprintf("'%s': 'VARCHAR'", c))
	}
	return fmt.Sprintf(
		"read_csv(%s, AUTO_DETECT = FALSE, HEADER = TRUE, union_by_name = TRUE, COLUMNS = {%s})",
		sqlgen.QuoteLiteral(pattern), strings.Join(cols, ", "))
}

func (l *Loader) buildSQL(source string) (string, error) {
	if err := sqlgen.ValidateIdentifier(l.cfg.MainTable); err != nil {
		return "", fmt.Errorf("invalid main table name %q: %w", l.cfg.MainTable, err)
	}
	ordered := make([]string, 0, len(l.cfg.SortColumns))
	for _, col := range l.cfg.SortColumns {
		if err := sqlgen.ValidateIdentifier(col); err != nil {
			return "", fmt.Errorf("invalid sort column %q: %w", col, err)
		}
		ordered = append(ordered, sqlgen.QuoteIdentifier(col))
	}

	return fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS
WITH raw AS (
  SELECT * FROM %s
),
casted AS (
  SELECT
    to_timestamp(TRY_CAST(ts AS DOUBLE) / 1000.0) AS ts,
    type,
    auction_id,
    TRY_CAST(advertiser_id AS INTEGER) AS advertiser_id,
    TRY_CAST(publisher_id AS INTEGER) AS publisher_id,
    TRY_CAST(bid_price AS DOUBLE) AS bid_price,
    TRY_CAST(user_id AS BIGINT) AS user_id,
    TRY_CAST(total_price AS DOUBLE) AS total_price,
    country
  FROM raw
)
SELECT
  ts,
  DATE_TRUNC('week', ts)::DATE AS week,
  DATE(ts) AS day,
  DATE_TRUNC('hour', ts) AS hour,
  STRFTIME(ts, '%%Y-%%m-%%d %%H:%%M') AS minute,
  type,
  auction_id,
  advertiser_id,
  publisher_id,
  bid_price,
  user_id,
  total_price,
  country
FROM casted
ORDER BY %s`,
		sqlgen.QuoteIdentifier(l.cfg.MainTable), source, strings.Join(ordered, ", ")), nil
}
