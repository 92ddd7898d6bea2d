package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketConfig configures an S3-compatible upload target.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool

	// Prefix is prepended to every object key.
	Prefix string
}

// BucketSink uploads rendered exports to object storage.
type BucketSink struct {
	client *minio.Client
	bucket string
	prefix string
	region string
	logger *slog.Logger
}

// NewBucketSink creates a MinIO client for cfg. Call EnsureBucket before the
// first upload.
func NewBucketSink(cfg BucketConfig) (*BucketSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &BucketSink{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: cfg.Region,
		logger: slog.Default().With("component", "audit.export.bucket"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *BucketSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("created export bucket", "bucket", s.bucket)
	return nil
}

// Upload stores data under a key derived from the export time and format
// and returns that key.
func (s *BucketSink) Upload(ctx context.Context, format Format, data []byte, at time.Time) (string, error) {
	key := ObjectKey(s.prefix, format, at)
	opts := minio.PutObjectOptions{ContentType: format.ContentType()}
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("upload export %s: %w", key, err)
	}
	s.logger.Info("export uploaded", "bucket", s.bucket, "key", key, "size", info.Size)
	return key, nil
}

// ObjectKey builds the object key for an export taken at the given time.
func ObjectKey(prefix string, format Format, at time.Time) string {
	name := fmt.Sprintf("audit-%s.%s", at.UTC().Format("20060102T150405.000000000Z"), format)
	return path.Join(prefix, at.UTC().Format("2006/01/02"), name)
}
