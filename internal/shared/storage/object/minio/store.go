// Package minio implements object storage on MinIO with one real bucket per
// logical bucket.
package minio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/storage/object"
)

// Config holds MinIO connection settings.
type Config struct {
	Endpoint   string // e.g. "localhost:9000"
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	PublicBase string
}

// Store implements platform.Objects using MinIO.
type Store struct {
	client     *minio.Client
	publicBase string

	mu     sync.Mutex
	limits map[string]platform.BucketSpec
}

// New creates a new MinIO storage client. No request is made until first use.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	base := strings.TrimRight(cfg.PublicBase, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &Store{client: client, publicBase: base, limits: map[string]platform.BucketSpec{}}, nil
}

func (s *Store) Upload(ctx context.Context, cred platform.Credential, bucket, key string, obj platform.Object) error {
	if err := platform.Authorize(cred, key); err != nil {
		return err
	}
	if !object.ValidKey(key) {
		return fmt.Errorf("invalid storage key")
	}
	if limit := s.limit(bucket); limit.FileSizeLimit > 0 && obj.Size > limit.FileSizeLimit {
		return platform.NewError(platform.KindOther, "413", "The object exceeded the maximum allowed size")
	}

	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return platform.NewError(platform.KindConflict, "409", "The resource already exists")
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
	case "NoSuchBucket":
		return platform.NewError(platform.KindNotFound, "404", "Bucket not found")
	default:
		return fmt.Errorf("failed to stat object: %w", err)
	}

	size := obj.Size
	if size <= 0 {
		size = -1
	}
	_, err = s.client.PutObject(ctx, bucket, key, obj.Body, size, minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		CacheControl: obj.CacheControl,
	})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return platform.NewError(platform.KindNotFound, "404", "Bucket not found")
		}
		return fmt.Errorf("failed to upload to minio: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, cred platform.Credential, bucket string, keys ...string) error {
	for _, key := range keys {
		if err := platform.Authorize(cred, key); err != nil {
			return err
		}
		if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				continue
			}
			return fmt.Errorf("failed to remove %s/%s: %w", bucket, key, err)
		}
	}
	return nil
}

func (s *Store) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + bucket + "/" + key
}

func (s *Store) ListBuckets(ctx context.Context) ([]platform.Bucket, error) {
	infos, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	out := make([]platform.Bucket, 0, len(infos))
	for _, info := range infos {
		public := false
		if policy, err := s.client.GetBucketPolicy(ctx, info.Name); err == nil && policy != "" {
			public = strings.Contains(policy, `"s3:GetObject"`)
		}
		out = append(out, platform.Bucket{ID: info.Name, Name: info.Name, Public: public})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateBucket(ctx context.Context, spec platform.BucketSpec) error {
	exists, err := s.client.BucketExists(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return platform.ErrBucketExists
	}
	if err := s.client.MakeBucket(ctx, spec.Name, minio.MakeBucketOptions{}); err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return platform.ErrBucketExists
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	if spec.Public {
		if err := s.client.SetBucketPolicy(ctx, spec.Name, publicReadPolicy(spec.Name)); err != nil {
			return fmt.Errorf("failed to set bucket policy: %w", err)
		}
	}
	s.mu.Lock()
	s.limits[spec.Name] = spec
	s.mu.Unlock()
	return nil
}

func (s *Store) limit(bucket string) platform.BucketSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limits[bucket]
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

var _ platform.Objects = (*Store)(nil)
