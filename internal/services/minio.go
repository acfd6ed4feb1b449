package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"podreseller_back_end/internal/apperr"
)

// ImageStorage stores product images in a MinIO bucket.
type ImageStorage struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

// NewImageStorage returns nil when client is nil so callers can treat upload
// as unavailable.
func NewImageStorage(client *minio.Client, bucket, endpoint string, secure bool) *ImageStorage {
	if client == nil {
		return nil
	}
	return &ImageStorage{client: client, bucket: bucket, endpoint: endpoint, secure: secure}
}

// Upload writes the image under a fresh object name and returns its public URL.
func (s *ImageStorage) Upload(ctx context.Context, productID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if s == nil {
		return "", apperr.Unavailable("image storage is not configured")
	}

	object := ObjectName(productID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", object, err)
	}

	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, object), nil
}

// ObjectName keeps the original extension and namespaces objects by product.
func ObjectName(productID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), ext)
}
