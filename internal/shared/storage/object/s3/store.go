package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/storage/object"
)

const (
	markerName   = ".bucket"
	metaPublic   = "public"
	metaMaxBytes = "max-bytes"
	metaMimes    = "mime-types"
)

// Config holds the S3 connection settings. Endpoint is set for S3-compatible
// services and switches the client to path-style addressing.
type Config struct {
	Region     string
	Bucket     string
	Prefix     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PublicBase string
}

// Store implements platform.Objects on a single S3 bucket. Logical buckets
// are top-level folders under the configured prefix, each holding a marker
// object that carries its settings.
type Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	publicBase string

	mu    sync.Mutex
	specs map[string]platform.BucketSpec
}

// New creates a new S3-backed object store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimRight(cfg.Endpoint, "/"))
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     normalizePrefix(cfg.Prefix),
		publicBase: publicBase(cfg),
		specs:      map[string]platform.BucketSpec{},
	}, nil
}

func (s *Store) Upload(ctx context.Context, cred platform.Credential, bucket, key string, obj platform.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := platform.Authorize(cred, key); err != nil {
		return err
	}
	if !object.ValidKey(key) {
		return fmt.Errorf("invalid storage key")
	}
	spec, err := s.spec(ctx, bucket)
	if err != nil {
		return err
	}
	if err := checkObject(spec, obj); err != nil {
		return err
	}

	// Buffer so the SDK can compute checksums over a seekable body.
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	objectKey := s.objectKey(bucket, key)
	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(objectKey),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(int64(len(data))),
		ContentType:          aws.String(obj.ContentType),
		IfNoneMatch:          aws.String("*"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}
	if obj.CacheControl != "" {
		input.CacheControl = aws.String(obj.CacheControl)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if statusOf(err) == http.StatusPreconditionFailed {
			return platform.NewError(platform.KindConflict, "409", "The resource already exists")
		}
		return fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, cred platform.Credential, bucket string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	ids := make([]s3types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		if err := platform.Authorize(cred, key); err != nil {
			return err
		}
		ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(s.objectKey(bucket, key))})
	}
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("s3 delete objects bucket=%s: %w", s.bucket, err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("s3 delete object key=%s: %s", aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

func (s *Store) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + s.objectKey(bucket, key)
}

func (s *Store) ListBuckets(ctx context.Context) ([]platform.Bucket, error) {
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 list buckets: %w", err)
	}

	buckets := make([]platform.Bucket, 0, len(out.CommonPrefixes))
	for _, p := range out.CommonPrefixes {
		name := strings.Trim(strings.TrimPrefix(aws.ToString(p.Prefix), listPrefix), "/")
		if name == "" {
			continue
		}
		spec, err := s.spec(ctx, name)
		if err != nil {
			if platform.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		buckets = append(buckets, platform.Bucket{ID: name, Name: name, Public: spec.Public})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (s *Store) CreateBucket(ctx context.Context, spec platform.BucketSpec) error {
	if !object.ValidKey(spec.Name) || strings.Contains(spec.Name, "/") {
		return fmt.Errorf("invalid bucket name %q", spec.Name)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(spec.Name, markerName)),
		Body:        bytes.NewReader(nil),
		IfNoneMatch: aws.String("*"),
		Metadata:    specMetadata(spec),
	})
	if err != nil {
		if statusOf(err) == http.StatusPreconditionFailed {
			return platform.ErrBucketExists
		}
		return fmt.Errorf("s3 create bucket %s: %w", spec.Name, err)
	}
	s.mu.Lock()
	s.specs[spec.Name] = spec
	s.mu.Unlock()
	return nil
}

func (s *Store) spec(ctx context.Context, bucket string) (platform.BucketSpec, error) {
	s.mu.Lock()
	spec, ok := s.specs[bucket]
	s.mu.Unlock()
	if ok {
		return spec, nil
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(bucket, markerName)),
	})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return platform.BucketSpec{}, platform.NewError(platform.KindNotFound, "404", "Bucket not found")
		}
		return platform.BucketSpec{}, fmt.Errorf("s3 head bucket marker %s: %w", bucket, err)
	}
	spec = specFromMetadata(bucket, head.Metadata)

	s.mu.Lock()
	s.specs[bucket] = spec
	s.mu.Unlock()
	return spec, nil
}

func (s *Store) objectKey(bucket, key string) string {
	return applyPrefix(s.prefix, bucket+"/"+strings.TrimLeft(key, "/"))
}

func checkObject(spec platform.BucketSpec, obj platform.Object) error {
	if spec.FileSizeLimit > 0 && obj.Size > spec.FileSizeLimit {
		return platform.NewError(platform.KindOther, "413", "The object exceeded the maximum allowed size")
	}
	if len(spec.AllowedMimeTypes) == 0 {
		return nil
	}
	for _, m := range spec.AllowedMimeTypes {
		if strings.EqualFold(m, obj.ContentType) {
			return nil
		}
	}
	return platform.NewError(platform.KindOther, "415", "mime type %s is not supported", obj.ContentType)
}

func specMetadata(spec platform.BucketSpec) map[string]string {
	meta := map[string]string{metaPublic: strconv.FormatBool(spec.Public)}
	if spec.FileSizeLimit > 0 {
		meta[metaMaxBytes] = strconv.FormatInt(spec.FileSizeLimit, 10)
	}
	if len(spec.AllowedMimeTypes) > 0 {
		meta[metaMimes] = strings.Join(spec.AllowedMimeTypes, ",")
	}
	return meta
}

func specFromMetadata(name string, meta map[string]string) platform.BucketSpec {
	spec := platform.BucketSpec{Name: name}
	spec.Public, _ = strconv.ParseBool(meta[metaPublic])
	spec.FileSizeLimit, _ = strconv.ParseInt(meta[metaMaxBytes], 10, 64)
	if v := meta[metaMimes]; v != "" {
		spec.AllowedMimeTypes = strings.Split(v, ",")
	}
	return spec
}

func statusOf(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func publicBase(cfg Config) string {
	if cfg.PublicBase != "" {
		return strings.TrimRight(cfg.PublicBase, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ platform.Objects = (*Store)(nil)
