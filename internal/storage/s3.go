package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/apexamhq/apexam-backend/internal/config"
)

// S3Store writes uploads to an S3-compatible bucket.
type S3Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	maxBytes      int64
}

// NewS3Store connects to the object store and ensures the bucket
// exists.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &S3Store{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
		maxBytes:      cfg.MaxUploadBytes,
	}, nil
}

// Save uploads the object under a UUID key and returns its public URL.
func (s *S3Store) Save(ctx context.Context, reader io.Reader, size int64, contentType string) (string, error) {
	ext, err := extensionFor(contentType, size, s.maxBytes)
	if err != nil {
		return "", err
	}

	objectName := "frq-pages/" + uuid.New().String() + ext
	_, err = s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	return s.publicBaseURL + "/" + objectName, nil
}
