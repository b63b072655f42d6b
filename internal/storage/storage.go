package storage

import (
	"context"
	"io"
	"log/slog"

	cfg "github.com/templui/codekeeper/internal/config"
)

// Storage persists proof photos and other uploaded blobs.
type Storage interface {
	Save(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// Presigner is implemented by backends that can hand out temporary direct links.
type Presigner interface {
	PresignedURL(ctx context.Context, path string) (string, error)
}

// New picks S3 when a bucket is configured, local disk otherwise.
func New(ctx context.Context, c *cfg.Config) (Storage, error) {
	if c.S3Bucket == "" {
		slog.Info("initializing local storage", "path", c.UploadPath)
		return NewLocalStorage(c.UploadPath)
	}

	slog.Info("initializing S3 storage",
		"bucket", c.S3Bucket,
		"region", c.S3Region,
		"endpoint", c.S3Endpoint,
	)
	return NewS3Storage(ctx, S3Config{
		Region:        c.S3Region,
		Bucket:        c.S3Bucket,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		Endpoint:      c.S3Endpoint,
		PresignExpiry: c.S3PresignExpiryPrivate,
	})
}
