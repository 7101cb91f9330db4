package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/storage/object"
)

// PublicPath is the URL prefix under which the router serves stored files.
const PublicPath = "/storage/v1/object/public"

const specFile = ".bucket.json"

// Store implements platform.Objects on the local filesystem. Each bucket is
// a directory under baseDir; objects live at baseDir/bucket/key.
type Store struct {
	baseDir    string
	publicBase string
}

// New creates a local store rooted at baseDir whose public URLs start with publicBase.
func New(baseDir, publicBase string) *Store {
	return &Store{baseDir: baseDir, publicBase: strings.TrimRight(publicBase, "/")}
}

// Dir returns the root directory, for serving files.
func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Upload(ctx context.Context, cred platform.Credential, bucket, key string, obj platform.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := platform.Authorize(cred, key); err != nil {
		return err
	}
	fullPath, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	spec, err := s.readSpec(bucket)
	if err != nil {
		return err
	}
	if spec.FileSizeLimit > 0 && obj.Size > spec.FileSizeLimit {
		return platform.NewError(platform.KindOther, "413", "The object exceeded the maximum allowed size")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return platform.NewError(platform.KindConflict, "409", "The resource already exists")
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, obj.Body); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, cred platform.Credential, bucket string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := platform.Authorize(cred, key); err != nil {
			return err
		}
		fullPath, err := s.objectPath(bucket, key)
		if err != nil {
			return err
		}
		if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
		}
	}
	return nil
}

func (s *Store) PublicURL(bucket, key string) string {
	return s.publicBase + PublicPath + "/" + bucket + "/" + key
}

func (s *Store) ListBuckets(ctx context.Context) ([]platform.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []platform.Bucket{}, nil
		}
		return nil, fmt.Errorf("read buckets: %w", err)
	}
	out := make([]platform.Bucket, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		spec, err := s.readSpec(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, platform.Bucket{ID: e.Name(), Name: e.Name(), Public: spec.Public})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateBucket(ctx context.Context, spec platform.BucketSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !object.ValidKey(spec.Name) || strings.Contains(spec.Name, "/") {
		return fmt.Errorf("invalid bucket name %q", spec.Name)
	}
	dir := filepath.Join(s.baseDir, spec.Name)
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return platform.ErrBucketExists
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, specFile), data, 0o644)
}

func (s *Store) objectPath(bucket, key string) (string, error) {
	if !object.ValidKey(bucket) || strings.Contains(bucket, "/") || !object.ValidKey(key) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(key)), nil
}

func (s *Store) readSpec(bucket string) (platform.BucketSpec, error) {
	dir := filepath.Join(s.baseDir, bucket)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return platform.BucketSpec{}, platform.NewError(platform.KindNotFound, "404", "Bucket not found")
		}
		return platform.BucketSpec{}, err
	}
	spec := platform.BucketSpec{Name: bucket, Public: true}
	data, err := os.ReadFile(filepath.Join(dir, specFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return spec, nil
		}
		return spec, err
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("decode bucket spec: %w", err)
	}
	return spec, nil
}

var _ platform.Objects = (*Store)(nil)
