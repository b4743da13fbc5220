// Package s3storage keeps uploaded spreadsheets in a MinIO/S3 bucket.
package s3storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/filestore"
)

// Storage implements filestore.Files on top of one bucket.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

var _ filestore.Files = (*Storage)(nil)

// New creates a MinIO client from the storage settings.
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
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
	return nil
}

func objectKey(name string) string {
	return "uploads/" + name
}

// Save uploads r. A negative size streams with multipart upload.
func (s *Storage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey(name), r, size, opts); err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// Open returns a reader over the object. A missing object surfaces as
// filestore.ErrNotExist.
func (s *Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := objectKey(name)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, mapErr(err, "stat object")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(err, "get object")
	}
	return obj, nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(name), minio.RemoveObjectOptions{}); err != nil {
		return mapErr(err, "remove object")
	}
	return nil
}

// PresignURL returns a signed GET URL served directly by the object store.
func (s *Storage) PresignURL(ctx context.Context, name, downloadName string, ttl time.Duration) (string, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey(name), ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func mapErr(err error, op string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return filestore.ErrNotExist
	}
	return fmt.Errorf("%s: %w", op, err)
}
