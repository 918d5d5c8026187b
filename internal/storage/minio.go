package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioScheme = "minio://"

// MinioStore keeps attachments in an S3-compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a MinIO client for cfg
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Save uploads content as <group>/<index>_<filename>
func (s *MinioStore) Save(ctx context.Context, group string, index int, filename string, content []byte) (models.AttachmentRef, error) {
	object := objectName(group, index, filename)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return models.AttachmentRef{}, fmt.Errorf("%w: %v", ErrFileWriteFailed, err)
	}
	return models.AttachmentRef{
		Filename: filename,
		Location: minioScheme + s.bucket + "/" + object,
		Size:     int64(len(content)),
	}, nil
}

// Open downloads an object saved by this store
func (s *MinioStore) Open(ctx context.Context, location string) ([]byte, error) {
	prefix := minioScheme + s.bucket + "/"
	if !strings.HasPrefix(location, prefix) {
		return nil, ErrInvalidLocation
	}
	obj, err := s.client.GetObject(ctx, s.bucket, strings.TrimPrefix(location, prefix), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileReadFailed, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileReadFailed, err)
	}
	return content, nil
}

func objectName(group string, index int, filename string) string {
	return sanitizeFilename(group) + "/" + storedName(index, filename)
}
