// Package storage writes uploaded course media to local disk or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/studybud/backend/internal/config"
)

// Kind names a category of upload with its own allowed extensions and key prefix.
type Kind string

const (
	KindVideo     Kind = "video"
	KindBook      Kind = "book"
	KindThumbnail Kind = "thumbnail"
)

var allowedExtensions = map[Kind][]string{
	KindVideo:     {".mp4", ".webm", ".ogg", ".mov"},
	KindBook:      {".pdf"},
	KindThumbnail: {".jpg", ".jpeg", ".png", ".gif"},
}

// ErrUnsupportedType indicates the file extension is not allowed for the upload kind.
var ErrUnsupportedType = errors.New("unsupported file type")

// Store persists uploaded files and removes them again.
type Store interface {
	// Save writes r under key and returns the public location of the file.
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	// Delete removes the file at a location returned by Save. Missing files are not an error.
	Delete(ctx context.Context, location string) error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, cfg.BaseURL)
	case "s3":
		return NewS3Storage(ctx, cfg.ObjectStore)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// Extensions lists the extensions accepted for kind.
func Extensions(kind Kind) []string {
	return append([]string(nil), allowedExtensions[kind]...)
}

// CheckExtension verifies that filename carries an extension allowed for kind.
func CheckExtension(kind Kind, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedExtensions[kind] {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s files must be one of %s", ErrUnsupportedType, kind, strings.Join(allowedExtensions[kind], ", "))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey validates filename for kind and returns a collision-free key of the form
// "<kind>s/<uuid>_<sanitized name>".
func ObjectKey(kind Kind, filename string) (string, error) {
	if err := CheckExtension(kind, filename); err != nil {
		return "", err
	}

	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload" + strings.ToLower(filepath.Ext(filename))
	}

	return fmt.Sprintf("%ss/%s_%s", kind, uuid.NewString(), base), nil
}
