// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cytometry/internal/archive"
	"cytometry/internal/store"
)

// Config is decoded from CYTOMETRY_* variables.
type Config struct {
	Addr           string `env:"CYTOMETRY_ADDR,default=:8000"`
	DBDriver       string `env:"CYTOMETRY_DB_DRIVER,default=duckdb"`
	DBFile         string `env:"CYTOMETRY_DB_FILE,default=cytometry.duckdb"`
	AllowedOrigins string `env:"CYTOMETRY_ALLOWED_ORIGINS,default=http://localhost:3000"`
	LogLevel       string `env:"CYTOMETRY_LOG_LEVEL,default=info"`
	LogFormat      string `env:"CYTOMETRY_LOG_FORMAT,default=text"`
	MaxUploadBytes int64  `env:"CYTOMETRY_MAX_UPLOAD_BYTES,default=33554432"`

	ArchiveDriver    string `env:"CYTOMETRY_ARCHIVE_DRIVER,default=none"`
	ArchiveRoot      string `env:"CYTOMETRY_ARCHIVE_ROOT,default=./uploads"`
	ArchiveBucket    string `env:"CYTOMETRY_ARCHIVE_S3_BUCKET"`
	ArchiveRegion    string `env:"CYTOMETRY_ARCHIVE_S3_REGION,default=us-east-1"`
	ArchiveEndpoint  string `env:"CYTOMETRY_ARCHIVE_S3_ENDPOINT"`
	ArchivePathStyle bool   `env:"CYTOMETRY_ARCHIVE_S3_PATH_STYLE,default=false"`
	ArchiveAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	ArchiveSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Load reads .env files when present and decodes the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	// defaults still apply when nothing is set
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and formats.
func (c Config) Validate() error {
	switch c.DBDriver {
	case store.DriverDuckDB, store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.DBFile == "" {
		return fmt.Errorf("CYTOMETRY_DB_FILE is required")
	}
	switch c.ArchiveDriver {
	case archive.DriverNone, archive.DriverFS:
	case archive.DriverS3:
		if c.ArchiveBucket == "" {
			return fmt.Errorf("CYTOMETRY_ARCHIVE_S3_BUCKET required for s3 archive")
		}
	default:
		return fmt.Errorf("unsupported archive driver %q", c.ArchiveDriver)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("CYTOMETRY_MAX_UPLOAD_BYTES must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

// Origins splits the comma separated CORS allow-list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Store returns the sample store settings.
func (c Config) Store() store.Config {
	return store.Config{Driver: c.DBDriver, DSN: c.DBFile}
}

// Archive returns the upload archive settings.
func (c Config) Archive() archive.Config {
	return archive.Config{
		Driver: c.ArchiveDriver,
		Root:   c.ArchiveRoot,
		S3: archive.S3Config{
			Bucket:          c.ArchiveBucket,
			Region:          c.ArchiveRegion,
			Endpoint:        c.ArchiveEndpoint,
			PathStyle:       c.ArchivePathStyle,
			AccessKeyID:     c.ArchiveAccessKey,
			SecretAccessKey: c.ArchiveSecretKey,
		},
	}
}

// Logger builds the process logger.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
