package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fileflow-app/fileflow/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// MinioStore talks to any S3 compatible object store.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
}

// NewMinioStore builds a store from config. Without credentials it returns
// Unconfigured() so the service can still start.
func NewMinioStore(cfg config.StorageConfig) (BlobStore, error) {
	if !cfg.Configured() {
		return Unconfigured(), nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.BucketName
	}
	return &MinioStore{
		client:    client,
		bucket:    cfg.BucketName,
		region:    cfg.Region,
		publicURL: base,
	}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.WithField("bucket", s.bucket).Info("[storage] created bucket")
	}

	if err := s.client.SetBucketPolicy(ctx, s.bucket, fmt.Sprintf(publicReadPolicy, s.bucket)); err != nil {
		if !exists {
			return fmt.Errorf("failed to make bucket public: %w", err)
		}
		log.WithError(err).WithField("bucket", s.bucket).Warn("[storage] could not refresh public read policy")
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	}
	// If-None-Match: * makes the store reject the write when key exists
	opts.SetMatchETagExcept("*")

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts)
	if isPreconditionFailed(err) {
		return fmt.Errorf("failed to upload %s: %w", key, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) List(ctx context.Context) ([]BlobInfo, error) {
	var out []BlobInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket: %w", obj.Err)
		}
		out = append(out, BlobInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

func (s *MinioStore) PublicURL(key string) string {
	return s.publicURL + "/" + url.PathEscape(key)
}
