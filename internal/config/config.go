// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// GuardConfig tunes the cardinality guard from the environment.
type GuardConfig struct {
	// HighCardinalityRatio: a column counts as high-cardinality when
	// its distinct count reaches rows/ratio.
	HighCardinalityRatio float64
	// MaxScanFraction admits a high-cardinality candidate anyway when
	// constant filters narrow the estimated scan to this fraction.
	MaxScanFraction float64
	// HighCardinalityColumns are treated as high-cardinality regardless
	// of statistics.
	HighCardinalityColumns []string
}

// Config holds the configuration for the CLI and the HTTP API.
type Config struct {
	DuckDBPath string // path to the DuckDB database file (default "rollup.duckdb")
	MetaDBPath string // path to the SQLite metastore file (default "rollup_meta.sqlite")
	DataDir    string // directory (or s3:// prefix) holding events parts (default "data")
	OutDir     string // directory for run outputs (default "out")
	MainTable  string // fact table name (default "events")

	// SortColumns order the main table for zonemap pruning. Empty uses
	// the loader default.
	SortColumns []string

	Guard              GuardConfig
	AnalyzeParallelism int    // bounded workload analysis concurrency (default 4)
	RefreshCron        string // cron spec for summary refresh; empty disables

	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// S3 fields are optional: nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3URLStyle *string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil &&
		c.S3Endpoint != nil && c.S3Region != nil
}

// LoadFromEnv loads configuration from environment variables.
// S3 variables are optional; the app can start without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DuckDBPath:  os.Getenv("DUCKDB_PATH"),
		MetaDBPath:  os.Getenv("META_DB_PATH"),
		DataDir:     os.Getenv("DATA_DIR"),
		OutDir:      os.Getenv("OUT_DIR"),
		MainTable:   os.Getenv("MAIN_TABLE"),
		RefreshCron: os.Getenv("REFRESH_CRON"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
	}

	if v := os.Getenv("SORT_COLUMNS"); v != "" {
		cfg.SortColumns = splitList(v)
	}

	// Guard tuning
	if v := os.Getenv("HIGH_CARDINALITY_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid HIGH_CARDINALITY_RATIO %q, using default", v))
		} else {
			cfg.Guard.HighCardinalityRatio = f
		}
	}
	if v := os.Getenv("MAX_SCAN_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid MAX_SCAN_FRACTION %q, using default", v))
		} else {
			cfg.Guard.MaxScanFraction = f
		}
	}
	if v := os.Getenv("HIGH_CARDINALITY_COLUMNS"); v != "" {
		cfg.Guard.HighCardinalityColumns = splitList(v)
	}

	if v := os.Getenv("ANALYZE_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AnalyzeParallelism = n
		}
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// S3 fields are optional: only set if present
	if v := os.Getenv("KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("REGION"); v != "" {
		cfg.S3Region = &v
	}
	if v := os.Getenv("URL_STYLE"); v != "" {
		cfg.S3URLStyle = &v
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	// Defaults
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = "rollup.duckdb"
	}
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "rollup_meta.sqlite"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "out"
	}
	if cfg.MainTable == "" {
		cfg.MainTable = "events"
	}
	if cfg.AnalyzeParallelism == 0 {
		cfg.AnalyzeParallelism = 4
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if strings.HasPrefix(cfg.DataDir, "s3://") && !cfg.HasS3Config() {
		cfg.Warnings = append(cfg.Warnings, "DATA_DIR is on S3 but KEY_ID/SECRET/ENDPOINT/REGION are not all set")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
