package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studybud/backend/internal/config"
)

func TestS3StorageKeyForStripsPublicBase(t *testing.T) {
	s := &S3Storage{bucket: "media", baseURL: "https://cdn.example.com/media"}

	if got := s.location("videos/a.mp4"); got != "https://cdn.example.com/media/videos/a.mp4" {
		t.Fatalf("unexpected location %q", got)
	}
	if got := s.keyFor("https://cdn.example.com/media/videos/a.mp4"); got != "videos/a.mp4" {
		t.Fatalf("unexpected key %q", got)
	}

	bare := &S3Storage{bucket: "media"}
	if got := bare.location("books/b.pdf"); got != "books/b.pdf" {
		t.Fatalf("expected bare key without a public base, got %q", got)
	}
	if got := bare.keyFor("/books/b.pdf"); got != "books/b.pdf" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"}); err == nil {
		t.Fatal("expected an error without a bucket")
	}
}

func TestS3StorageProbeURLIsPresigned(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_ACCESS_KEY_ID", "test-access")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test-secret")

	s, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{
		Bucket:   "media",
		Endpoint: "http://localhost:9000",
		Region:   "us-east-1",
	})
	if err != nil {
		t.Fatalf("new s3 storage: %v", err)
	}

	url, err := s.ProbeURL("videos/lecture.mp4")
	if err != nil {
		t.Fatalf("probe url: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:9000/media/videos/lecture.mp4?") {
		t.Fatalf("expected a path-style url, got %q", url)
	}
	if !strings.Contains(url, "X-Amz-Signature=") {
		t.Fatalf("expected a signed url, got %q", url)
	}

	if _, err := s.ProbeURL(""); err == nil {
		t.Fatal("expected an error for an empty location")
	}
}
