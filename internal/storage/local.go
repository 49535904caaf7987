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
)

// LocalStore writes uploads below a directory served as static files.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore ensures dir exists and returns a store whose locations start with baseURL.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: create %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir is the root directory uploads are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes r to the file named by key.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	target, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("local storage: create directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("local storage: create %s: %w", key, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("local storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("local storage: close %s: %w", key, err)
	}

	return s.baseURL + "/" + filepath.ToSlash(key), nil
}

// Delete removes the file behind location.
func (s *LocalStore) Delete(_ context.Context, location string) error {
	target, err := s.Path(location)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local storage: delete %s: %w", location, err)
	}
	return nil
}

// Path maps a location returned by Save back to the file on disk.
func (s *LocalStore) Path(location string) (string, error) {
	return s.resolve(strings.TrimPrefix(location, s.baseURL))
}

func (s *LocalStore) resolve(key string) (string, error) {
	key = strings.TrimLeft(filepath.ToSlash(key), "/")
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("local storage: invalid key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}
