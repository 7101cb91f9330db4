package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"companion-backend/internal/platform"
)

// StoredObject is an object held by Objects.
type StoredObject struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// Objects implements platform.Objects in process, applying the same
// ownership rule as storage policies on the hosted platform.
type Objects struct {
	mu         sync.Mutex
	publicBase string
	buckets    map[string]platform.BucketSpec
	objects    map[string]map[string]StoredObject
	fail       map[string]error
}

// NewObjects returns a store whose public URLs start with publicBase.
// Each name in buckets is created public with no limits.
func NewObjects(publicBase string, buckets ...string) *Objects {
	o := &Objects{
		publicBase: strings.TrimRight(publicBase, "/"),
		buckets:    make(map[string]platform.BucketSpec),
		objects:    make(map[string]map[string]StoredObject),
		fail:       make(map[string]error),
	}
	for _, name := range buckets {
		o.buckets[name] = platform.BucketSpec{Name: name, Public: true}
		o.objects[name] = make(map[string]StoredObject)
	}
	return o
}

// FailOn makes op ("upload", "remove", "list", "create") return err. A nil err clears it.
func (o *Objects) FailOn(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		delete(o.fail, op)
		return
	}
	o.fail[op] = err
}

// Get returns the stored object at bucket/key.
func (o *Objects) Get(bucket, key string) (StoredObject, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[bucket][key]
	return obj, ok
}

// Keys lists the keys in bucket in lexical order.
func (o *Objects) Keys(bucket string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects[bucket]))
	for k := range o.objects[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *Objects) Upload(ctx context.Context, cred platform.Credential, bucket, key string, obj platform.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := platform.Authorize(cred, key); err != nil {
		return err
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail["upload"]; err != nil {
		return err
	}
	spec, ok := o.buckets[bucket]
	if !ok {
		return platform.NewError(platform.KindNotFound, "404", "Bucket not found")
	}
	if spec.FileSizeLimit > 0 && int64(len(data)) > spec.FileSizeLimit {
		return platform.NewError(platform.KindOther, "413", "The object exceeded the maximum allowed size")
	}
	if len(spec.AllowedMimeTypes) > 0 && !contains(spec.AllowedMimeTypes, obj.ContentType) {
		return platform.NewError(platform.KindOther, "415", "mime type %s is not supported", obj.ContentType)
	}
	if _, exists := o.objects[bucket][key]; exists {
		return platform.NewError(platform.KindConflict, "409", "The resource already exists")
	}
	o.objects[bucket][key] = StoredObject{
		Data:         bytes.Clone(data),
		ContentType:  obj.ContentType,
		CacheControl: obj.CacheControl,
	}
	return nil
}

func (o *Objects) Remove(ctx context.Context, cred platform.Credential, bucket string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := platform.Authorize(cred, key); err != nil {
			return err
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail["remove"]; err != nil {
		return err
	}
	if _, ok := o.buckets[bucket]; !ok {
		return platform.NewError(platform.KindNotFound, "404", "Bucket not found")
	}
	for _, key := range keys {
		delete(o.objects[bucket], key)
	}
	return nil
}

func (o *Objects) PublicURL(bucket, key string) string {
	return o.publicBase + "/storage/v1/object/public/" + bucket + "/" + key
}

func (o *Objects) ListBuckets(ctx context.Context) ([]platform.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail["list"]; err != nil {
		return nil, err
	}
	out := make([]platform.Bucket, 0, len(o.buckets))
	for name, spec := range o.buckets {
		out = append(out, platform.Bucket{ID: name, Name: name, Public: spec.Public})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (o *Objects) CreateBucket(ctx context.Context, spec platform.BucketSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail["create"]; err != nil {
		return err
	}
	if _, ok := o.buckets[spec.Name]; ok {
		return platform.ErrBucketExists
	}
	o.buckets[spec.Name] = spec
	o.objects[spec.Name] = make(map[string]StoredObject)
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
