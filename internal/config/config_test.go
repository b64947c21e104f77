package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DUCKDB_PATH", "META_DB_PATH", "DATA_DIR", "OUT_DIR", "MAIN_TABLE",
		"SORT_COLUMNS", "HIGH_CARDINALITY_RATIO", "MAX_SCAN_FRACTION",
		"HIGH_CARDINALITY_COLUMNS", "ANALYZE_PARALLELISM", "REFRESH_CRON",
		"LISTEN_ADDR", "LOG_LEVEL", "ENV", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"CORS_ALLOWED_ORIGINS", "KEY_ID", "SECRET", "ENDPOINT", "REGION", "URL_STYLE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "rollup.duckdb", cfg.DuckDBPath)
	assert.Equal(t, "rollup_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, "events", cfg.MainTable)
	assert.Nil(t, cfg.SortColumns)
	assert.Zero(t, cfg.Guard.HighCardinalityRatio)
	assert.Zero(t, cfg.Guard.MaxScanFraction)
	assert.Equal(t, 4, cfg.AnalyzeParallelism)
	assert.Empty(t, cfg.RefreshCron)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Nil(t, cfg.S3KeyID)
	assert.False(t, cfg.HasS3Config())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUCKDB_PATH", "/tmp/events.duckdb")
	t.Setenv("META_DB_PATH", "/tmp/meta.sqlite")
	t.Setenv("DATA_DIR", "/srv/parts")
	t.Setenv("OUT_DIR", "/srv/out")
	t.Setenv("MAIN_TABLE", "events")
	t.Setenv("SORT_COLUMNS", "day, type ,country")
	t.Setenv("HIGH_CARDINALITY_RATIO", "100")
	t.Setenv("MAX_SCAN_FRACTION", "0.2")
	t.Setenv("HIGH_CARDINALITY_COLUMNS", "user_id,auction_id")
	t.Setenv("ANALYZE_PARALLELISM", "8")
	t.Setenv("REFRESH_CRON", "*/10 * * * *")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/events.duckdb", cfg.DuckDBPath)
	assert.Equal(t, "/tmp/meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, []string{"day", "type", "country"}, cfg.SortColumns)
	assert.Equal(t, float64(100), cfg.Guard.HighCardinalityRatio)
	assert.Equal(t, 0.2, cfg.Guard.MaxScanFraction)
	assert.Equal(t, []string{"user_id", "auction_id"}, cfg.Guard.HighCardinalityColumns)
	assert.Equal(t, 8, cfg.AnalyzeParallelism)
	assert.Equal(t, "*/10 * * * *", cfg.RefreshCron)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromEnv_InvalidGuardValuesWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("HIGH_CARDINALITY_RATIO", "banana")
	t.Setenv("MAX_SCAN_FRACTION", "1.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Zero(t, cfg.Guard.HighCardinalityRatio)
	assert.Zero(t, cfg.Guard.MaxScanFraction)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadFromEnv_WithS3(t *testing.T) {
	clearEnv(t)
	t.Setenv("KEY_ID", "testkey")
	t.Setenv("SECRET", "testsecret")
	t.Setenv("ENDPOINT", "s3.example.com")
	t.Setenv("REGION", "us-east-1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.HasS3Config())
	require.NotNil(t, cfg.S3KeyID)
	assert.Equal(t, "testkey", *cfg.S3KeyID)
}

func TestLoadFromEnv_S3DataDirWithoutCredentialsWarns(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "s3://bucket/events")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "S3")
}

func TestLoadFromEnv_ProductionRejectsCORSWildcard(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://rollup.internal")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://rollup.internal"}, cfg.CORSAllowedOrigins)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"unknown", "INFO"},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel().String(), "level %q", tt.level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# comment line
MAIN_TABLE=events
DATA_DIR="/srv/parts"
REFRESH_CRON='*/5 * * * *'

NOT_A_PAIR
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MAIN_TABLE", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("REFRESH_CRON", "")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "events", os.Getenv("MAIN_TABLE"))
	assert.Equal(t, "/srv/parts", os.Getenv("DATA_DIR"))
	assert.Equal(t, "*/5 * * * *", os.Getenv("REFRESH_CRON"))
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MAIN_TABLE=from_file\n"), 0o600))

	t.Setenv("MAIN_TABLE", "from_env")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from_env", os.Getenv("MAIN_TABLE"))
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
