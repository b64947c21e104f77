package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"duck-rollup/internal/app"
	"duck-rollup/internal/config"
	"duck-rollup/internal/db"
	"duck-rollup/internal/engine"
)

// setupApp wires the application for one command invocation. Overrides
// run after config loading so flags can replace env values. Logs go to
// stderr so stdout stays clean for table and JSON output.
func setupApp(ctx context.Context, overrides ...func(*config.Config)) (*app.App, *config.Config, func(), error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	for _, apply := range overrides {
		apply(cfg)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	duckDB, err := engine.Open(cfg.DuckDBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open duckdb: %w", err)
	}

	writeDB, readDB, err := db.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		_ = duckDB.Close()
		return nil, nil, nil, fmt.Errorf("open metastore: %w", err)
	}

	cleanup := func() {
		_ = readDB.Close()
		_ = writeDB.Close()
		_ = duckDB.Close()
	}

	if err := db.RunMigrations(writeDB); err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("migrate metastore: %w", err)
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		DuckDB:  duckDB,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return a, cfg, cleanup, nil
}
