package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	cfg "github.com/trinnux/gallery/internal/config"
)

// ErrInvalidName is returned for names that are not a single flat key.
var ErrInvalidName = errors.New("invalid object name")

// Storage is the content store for transcoded gallery files. Names are flat
// keys; the same name always addresses the same object.
type Storage interface {
	// Save stores data under name, replacing any existing object
	Save(ctx context.Context, name string, data io.Reader) error

	// Delete removes the object; a missing object is not an error
	Delete(ctx context.Context, name string) error

	// Exists reports whether an object is stored under name
	Exists(ctx context.Context, name string) (bool, error)

	// URL returns the public address of the object for the static file server
	URL(name string) string
}

// New selects the storage backend from app config.
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case "", "local":
		slog.Info("initializing local storage", "dir", c.UploadDir, "url_prefix", c.UploadURLPrefix)
		return NewLocalStorage(c.UploadDir, c.UploadURLPrefix)
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(S3Config{
			Region:              c.S3Region,
			Bucket:              c.S3Bucket,
			AccessKey:           c.S3AccessKey,
			SecretKey:           c.S3SecretKey,
			Endpoint:            c.S3Endpoint,
			Prefix:              c.S3Prefix,
			PresignExpiryPublic: c.S3PresignExpiryPublic,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
