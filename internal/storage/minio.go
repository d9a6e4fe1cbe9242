// Package storage stores uploaded files (chat attachments, task
// submissions, deliverables) in an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

// ObjectStore uploads files and resolves download URLs.
type ObjectStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64) (store.FileRef, error)
	PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, objectID string) error
}

// MinioStore implements ObjectStore on a MinIO / S3 bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload streams r into the bucket under folder and returns a FileRef
// recording where it landed.
func (m *MinioStore) Upload(ctx context.Context, folder, filename string, r io.Reader, size int64) (store.FileRef, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	objectID := path.Join(folder, util.NewID("obj"))
	if ext != "" {
		objectID += "." + ext
	}

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := m.client.PutObject(ctx, m.bucket, objectID, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return store.FileRef{}, fmt.Errorf("upload object: %w", err)
	}

	url, err := m.PresignedURL(ctx, objectID, 7*24*time.Hour)
	if err != nil {
		return store.FileRef{}, err
	}
	return store.FileRef{
		ObjectID: objectID,
		URL:      url,
		Format:   ext,
		Size:     size,
	}, nil
}

func (m *MinioStore) PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectID, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object url: %w", err)
	}
	return u.String(), nil
}

func (m *MinioStore) Remove(ctx context.Context, objectID string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
