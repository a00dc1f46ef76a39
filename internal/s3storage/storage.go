// Package s3storage keeps uploaded records files in MinIO/S3: new uploads
// land in the upload bucket and are moved to the archive bucket once picked
// up by the pipeline.
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/StreetPass/internal/config"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Storage wraps MinIO/S3 interactions for the upload and archive buckets.
type Storage struct {
	client        *minio.Client
	uploadBucket  string
	archiveBucket string
	region        string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:        client,
		uploadBucket:  cfg.UploadBucket,
		archiveBucket: cfg.ArchiveBucket,
		region:        cfg.S3Region,
	}, nil
}

// UploadBucket is the bucket new uploads are written to.
func (s *Storage) UploadBucket() string { return s.uploadBucket }

// EnsureBuckets makes sure the upload and archive buckets exist before use.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.archiveBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// PutUpload writes a records file into the upload bucket.
func (s *Storage) PutUpload(ctx context.Context, key string, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	_, err := s.client.PutObject(ctx, s.uploadBucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("put upload %s: %w", key, err)
	}
	return nil
}

// Archive copies srcKey from the upload bucket to dstKey in the archive
// bucket, then removes the source. A failed removal leaves both copies and
// is reported, so a retry moves the file again.
func (s *Storage) Archive(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.archiveBucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.uploadBucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("copy %s to archive: %w", srcKey, translate(err))
	}
	if err := s.client.RemoveObject(ctx, s.uploadBucket, srcKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove upload %s: %w", srcKey, err)
	}
	return nil
}

// LoadArchived reads an object from the archive bucket.
func (s *Storage) LoadArchived(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.archiveBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get archived %s: %w", key, translate(err))
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read archived %s: %w", key, translate(err))
	}
	return buf, nil
}

// ListArchived returns archived object names under prefix, for replays.
func (s *Storage) ListArchived(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.archiveBucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list archive: %w", obj.Err)
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

func translate(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
