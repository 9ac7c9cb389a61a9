// Package archive keeps a copy of every accepted upload.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Supported drivers.
const (
	DriverNone = "none"
	DriverFS   = "fs"
	DriverS3   = "s3"
)

// Archiver stores an upload under key.
type Archiver interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

// Config selects and parameterises an Archiver.
type Config struct {
	Driver string
	Root   string
	S3     S3Config
}

// New builds the Archiver named by cfg.Driver. An empty driver means none.
func New(ctx context.Context, cfg Config) (Archiver, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverFS:
		return NewFS(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported archive driver %q", cfg.Driver)
	}
}

// Key names an upload received at t.
func Key(t time.Time) string {
	return fmt.Sprintf("uploads/%s-%s.csv", t.UTC().Format("20060102T150405Z"), uuid.NewString())
}

// Nop discards uploads.
type Nop struct{}

func (Nop) Put(_ context.Context, _ string, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
