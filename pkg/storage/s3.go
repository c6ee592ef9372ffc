package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/pkg/config"
)

// S3Storage keeps blobs in an S3-compatible bucket. Locators are object keys.
type S3Storage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

// NewS3Storage connects to the configured endpoint.
func NewS3Storage(cfg config.S3Config, logger *zap.Logger) (*S3Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var creds *credentials.Credentials
	if cfg.AccessKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, logger: logger, now: time.Now}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put streams r to a new object. The size is unknown up front so minio uses a
// multipart upload.
func (s *S3Storage) Put(ctx context.Context, r io.Reader, suggestedName string) (Object, error) {
	key := ObjectName(suggestedName, s.now())
	info, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		s.logger.Error("s3_upload_failed", zap.String("object", key), zap.String("bucket", s.bucket), zap.Error(err))
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Debug("s3_upload_success", zap.String("object", key), zap.Int64("size", info.Size))
	return Object{Locator: key, Size: info.Size}, nil
}

// Get opens the object for reading. Stat is called eagerly so a missing key
// fails here rather than on the first Read.
func (s *S3Storage) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", locator, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("stat object %s: %w", locator, err)
	}
	return obj, nil
}

// Delete removes the object.
func (s *S3Storage) Delete(ctx context.Context, locator string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, locator, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", locator, err)
	}
	return nil
}
