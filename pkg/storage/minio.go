package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kesbangpol-dev/perizinan-api/pkg/config"
)

// ObjectStorage writes submission attachments to an S3-compatible bucket and
// derives their public URLs without a follow-up round trip.
type ObjectStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewObjectStorage connects to the configured object store and verifies the
// bucket exists.
func NewObjectStorage(ctx context.Context, cfg config.StorageConfig) (*ObjectStorage, error) {
	endpoint, secure, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("storage bucket does not exist: %s", cfg.Bucket)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &ObjectStorage{client: client, bucket: cfg.Bucket, publicBaseURL: base}, nil
}

// Put streams one object into the bucket tagged with its content type and
// returns the public URL of the stored object.
func (s *ObjectStorage) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}
	return s.PublicURL(objectName), nil
}

// PublicURL builds the publicly reachable URL for a stored object.
func (s *ObjectStorage) PublicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, url.PathEscape(objectName))
}

// normalizeEndpoint accepts either "minio:9000" or a full "http(s)://" URL
// and reports whether TLS should be used.
func normalizeEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty storage endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid storage endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("storage endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme, treat as host:port (insecure by default for local object stores).
	return raw, false, nil
}
