package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// LocalStorage keeps objects as files in a single directory that an
// external static file server exposes under urlPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStorage{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// Dir returns the directory objects are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes to a temp file in the same directory and renames it into place,
// so readers never observe a partially written object.
func (s *LocalStorage) Save(ctx context.Context, name string, data io.Reader) error {
	err := validateName(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.dir, name)
	err = atomic.WriteFile(target, data)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	// Temp files are created 0600; the static file server needs read access
	err = os.Chmod(target, 0644)
	if err != nil {
		return fmt.Errorf("failed to chmod file: %w", err)
	}

	return nil
}

func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	err := validateName(name)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	err := validateName(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	return true, nil
}

func (s *LocalStorage) URL(name string) string {
	return s.urlPrefix + "/" + name
}
