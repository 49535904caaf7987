package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/studybud/backend/internal/config"
)

// probeURLLifetime bounds how long a presigned link handed to ffprobe stays valid.
const probeURLLifetime = 15 * time.Minute

// S3Storage keeps course media in an S3-compatible bucket as public-read objects.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
	baseURL   string
}

// NewS3Storage configures a client and multipart uploader for the bucket in cfg.
// A custom endpoint (MinIO, R2, ...) switches the client to path-style addressing.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 8 * 1024 * 1024
			u.Concurrency = 4
		}),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save streams r to the bucket under key and returns its public URL, or the bare key
// when no public base URL is configured.
func (s *S3Storage) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("s3 storage: empty key")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 storage upload %s: %w", key, err)
	}
	return s.location(key), nil
}

// Delete removes the object behind location. S3 treats deleting a missing key as success.
func (s *S3Storage) Delete(ctx context.Context, location string) error {
	key := s.keyFor(location)
	if key == "" {
		return fmt.Errorf("s3 storage: empty key")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", key, err)
	}
	return nil
}

// ProbeURL presigns a short-lived GET for location so ffprobe can read private
// buckets over HTTPS.
func (s *S3Storage) ProbeURL(location string) (string, error) {
	key := s.keyFor(location)
	if key == "" {
		return "", fmt.Errorf("s3 storage: empty key")
	}

	req, err := s.presigner.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(probeURLLifetime))
	if err != nil {
		return "", fmt.Errorf("s3 storage presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) location(key string) string {
	if s.baseURL == "" {
		return key
	}
	return s.baseURL + "/" + key
}

func (s *S3Storage) keyFor(location string) string {
	if s.baseURL != "" {
		location = strings.TrimPrefix(location, s.baseURL)
	}
	return strings.TrimLeft(location, "/")
}
