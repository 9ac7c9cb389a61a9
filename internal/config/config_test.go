package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cytometry/internal/archive"
	"cytometry/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CYTOMETRY_ADDR", "CYTOMETRY_DB_DRIVER", "CYTOMETRY_DB_FILE", "CYTOMETRY_ALLOWED_ORIGINS",
		"CYTOMETRY_LOG_LEVEL", "CYTOMETRY_LOG_FORMAT", "CYTOMETRY_ARCHIVE_DRIVER",
		"CYTOMETRY_ARCHIVE_ROOT", "CYTOMETRY_ARCHIVE_S3_BUCKET", "CYTOMETRY_ARCHIVE_S3_REGION",
		"CYTOMETRY_ARCHIVE_S3_ENDPOINT", "CYTOMETRY_ARCHIVE_S3_PATH_STYLE",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "CYTOMETRY_MAX_UPLOAD_BYTES",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, store.Config{Driver: store.DriverDuckDB, DSN: "cytometry.duckdb"}, cfg.Store())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, archive.DriverNone, cfg.Archive().Driver)
	assert.Equal(t, "us-east-1", cfg.Archive().S3.Region)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"CYTOMETRY_DB_DRIVER=sqlite\n"+
			"CYTOMETRY_DB_FILE=data/cohort.db\n"+
			"CYTOMETRY_ALLOWED_ORIGINS=http://a.test, http://b.test\n"+
			"CYTOMETRY_ARCHIVE_DRIVER=s3\n"+
			"CYTOMETRY_ARCHIVE_S3_BUCKET=uploads\n"+
			"CYTOMETRY_ARCHIVE_S3_PATH_STYLE=true\n"+
			"CYTOMETRY_LOG_FORMAT=json\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, store.Config{Driver: store.DriverSQLite, DSN: "data/cohort.db"}, cfg.Store())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())

	ac := cfg.Archive()
	assert.Equal(t, archive.DriverS3, ac.Driver)
	assert.Equal(t, "uploads", ac.S3.Bucket)
	assert.True(t, ac.S3.PathStyle)

	log := cfg.Logger()
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestValidate(t *testing.T) {
	base := Config{DBDriver: "duckdb", DBFile: "x.duckdb", LogLevel: "debug", LogFormat: "text", ArchiveDriver: "none", MaxUploadBytes: 1024}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"driver", func(c *Config) { c.DBDriver = "mysql" }, `unsupported db driver "mysql"`},
		{"file", func(c *Config) { c.DBFile = "" }, "CYTOMETRY_DB_FILE is required"},
		{"archive", func(c *Config) { c.ArchiveDriver = "ftp" }, `unsupported archive driver "ftp"`},
		{"bucket", func(c *Config) { c.ArchiveDriver = "s3" }, "CYTOMETRY_ARCHIVE_S3_BUCKET required for s3 archive"},
		{"upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, "CYTOMETRY_MAX_UPLOAD_BYTES must be positive"},
		{"format", func(c *Config) { c.LogFormat = "xml" }, `unsupported log format "xml"`},
		{"level", func(c *Config) { c.LogLevel = "loud" }, `not a valid logrus Level: "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.EqualError(t, cfg.Validate(), tt.msg)
		})
	}
}

func TestLoggerLevel(t *testing.T) {
	log := Config{LogLevel: "debug", LogFormat: "text"}.Logger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}
