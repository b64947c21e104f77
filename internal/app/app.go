// Package app provides application-level wiring: it assembles the
// engine, repositories, and services from config and open database
// handles.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"duck-rollup/internal/config"
	"duck-rollup/internal/db/repository"
	"duck-rollup/internal/domain"
	"duck-rollup/internal/engine"
	"duck-rollup/internal/loader"
	"duck-rollup/internal/optimizer"
	"duck-rollup/internal/service"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// database handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	DuckDB  *sql.DB
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App holds the fully wired application.
type App struct {
	Runner    *service.Runner
	Refresher *service.Refresher
	Loader    *loader.Loader
	History   domain.RunHistoryStore
	Executor  domain.Executor
}

// New wires the engine, repositories, and services from the provided
// deps, then loads the persisted catalog so routing works immediately.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	// === Engine ===
	exec := engine.NewExecutor(deps.DuckDB)
	if cfg.HasS3Config() {
		if err := engine.InstallExtensions(ctx, deps.DuckDB); err != nil {
			return nil, fmt.Errorf("install extensions: %w", err)
		}
		urlStyle := "path"
		if cfg.S3URLStyle != nil {
			urlStyle = *cfg.S3URLStyle
		}
		if err := engine.CreateS3Secret(ctx, deps.DuckDB, "rollup_s3",
			*cfg.S3KeyID, *cfg.S3Secret, *cfg.S3Endpoint, *cfg.S3Region, urlStyle); err != nil {
			return nil, fmt.Errorf("create storage secret: %w", err)
		}
		deps.Logger.Info("S3 storage secret registered")
	}

	// === Repositories ===
	catalogRepo := repository.NewCatalogRepo(deps.WriteDB)
	historyRepo := repository.NewRunHistoryRepo(deps.WriteDB)
	// History listing goes through the read pool; inserts stay on the
	// single-writer pool.
	historyReader := repository.NewRunHistoryRepo(deps.ReadDB)

	// === Loader + guard ===
	ld := loader.New(exec, loader.Config{
		DataDir:     cfg.DataDir,
		MainTable:   cfg.MainTable,
		SortColumns: cfg.SortColumns,
	}, deps.Logger.With("component", "loader"))

	guard := optimizer.NewStatsGuard(optimizer.GuardConfig{
		HighCardinalityRatio:   cfg.Guard.HighCardinalityRatio,
		MaxScanFraction:        cfg.Guard.MaxScanFraction,
		HighCardinalityColumns: cfg.Guard.HighCardinalityColumns,
	})

	// === Services ===
	analyzer := service.NewAnalyzer(guard, catalogRepo, cfg.MainTable,
		cfg.AnalyzeParallelism, deps.Logger.With("component", "analyzer"))
	materializer := service.NewMaterializer(exec, cfg.MainTable,
		deps.Logger.With("component", "materializer"))

	runner := service.NewRunner(service.RunnerDeps{
		Analyzer:     analyzer,
		Materializer: materializer,
		Executor:     exec,
		Catalog:      catalogRepo,
		History:      historyRepo,
		MainTable:    cfg.MainTable,
		Logger:       deps.Logger.With("component", "runner"),
	})
	if err := runner.Bootstrap(ctx); err != nil {
		return nil, err
	}

	refresher := service.NewRefresher(runner, cfg.RefreshCron,
		deps.Logger.With("component", "refresher"))

	return &App{
		Runner:    runner,
		Refresher: refresher,
		Loader:    ld,
		History:   historyReader,
		Executor:  exec,
	}, nil
}
