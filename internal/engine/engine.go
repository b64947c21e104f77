// Package engine owns the DuckDB connection: opening the database,
// loading extensions, registering storage secrets, and executing SQL for
// the loader, materializer, and query runner.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"duck-rollup/internal/sqlgen"
)

// Open opens the DuckDB database at path. An empty path opens an
// in-memory database. The pool is capped at one writer connection:
// summary materialization issues CREATE OR REPLACE TABLE statements and
// DuckDB serializes catalog writes anyway.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb at %q: %w", path, err)
	}
	return db, nil
}

// InstallExtensions installs and loads the DuckDB extensions used for
// remote datasets. Safe to call without S3 credentials configured.
func InstallExtensions(ctx context.Context, db *sql.DB) error {
	extensions := []string{
		"INSTALL httpfs; LOAD httpfs;",
	}
	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("extension setup (%s): %w", ext, err)
		}
	}
	return nil
}

// CreateS3Secret creates a named DuckDB secret for S3-compatible
// storage, letting the loader read s3:// dataset paths directly.
func CreateS3Secret(ctx context.Context, db *sql.DB, name, keyID, secret, endpoint, region, urlStyle string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	secretSQL := fmt.Sprintf(`CREATE OR REPLACE SECRET %s (
	TYPE S3,
	KEY_ID %s,
	SECRET %s,
	ENDPOINT %s,
	REGION %s,
	URL_STYLE %s
)`,
		sqlgen.QuoteIdentifier(name),
		sqlgen.QuoteLiteral(keyID),
		sqlgen.QuoteLiteral(secret),
		sqlgen.QuoteLiteral(endpoint),
		sqlgen.QuoteLiteral(region),
		sqlgen.QuoteLiteral(urlStyle),
	)
	if _, err := db.ExecContext(ctx, secretSQL); err != nil {
		return fmt.Errorf("create S3 secret %q: %w", name, err)
	}
	return nil
}

// DropSecret removes a named DuckDB secret.
func DropSecret(ctx context.Context, db *sql.DB, name string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	dropSQL := fmt.Sprintf("DROP SECRET IF EXISTS %s", sqlgen.QuoteIdentifier(name))
	if _, err := db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop secret %q: %w", name, err)
	}
	return nil
}
