package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store uploads report artifacts to a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	presign    time.Duration
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// WithPresign makes Upload return presigned GET URLs valid for ttl (private buckets).
func (s *Store) WithPresign(ttl time.Duration) *Store {
	s.presign = ttl
	return s
}

// Upload implementasi ArtifactStore. The local file is kept; reports are also served from disk.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType:  contentType(localPath),
		UserMetadata: map[string]string{"scan-id": scanIDFromKey(key)},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if s.presign > 0 {
		params := url.Values{}
		params.Set("response-content-disposition", fmt.Sprintf(`inline; filename="%s"`, filepath.Base(key)))
		u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.presign, params)
		if err != nil {
			return "", fmt.Errorf("presign %s: %w", key, err)
		}
		return u.String(), nil
	}
	return objectURL(s.client.EndpointURL().Scheme, s.client.EndpointURL().Host, s.bucketName, key), nil
}

// keys look like reports/<scan id>/<file>
func scanIDFromKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// URL publik, hanya valid kalau bucket public
func objectURL(scheme, host, bucket, key string) string {
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, host, bucket, key)
}
