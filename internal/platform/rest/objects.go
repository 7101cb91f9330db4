package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"companion-backend/internal/platform"
)

// Objects implements platform.Objects against /storage/v1. Uploads and
// deletes run under the given credential so bucket policies apply.
type Objects struct {
	c *Client
}

func (o *Objects) Upload(ctx context.Context, cred platform.Credential, bucket, key string, obj platform.Object) error {
	req := o.c.as(cred).
		SetContext(ctx).
		SetHeader("x-upsert", "false").
		SetBody(obj.Body)
	if obj.ContentType != "" {
		req.SetHeader("Content-Type", obj.ContentType)
	}
	if obj.CacheControl != "" {
		req.SetHeader("cache-control", obj.CacheControl)
	}
	resp, err := req.Post("/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapeKey(key))
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return mapHTTPError(resp)
}

// Remove deletes each key on its own request. Missing objects are ignored.
func (o *Objects) Remove(ctx context.Context, cred platform.Credential, bucket string, keys ...string) error {
	for _, key := range keys {
		resp, err := o.c.as(cred).
			SetContext(ctx).
			Delete("/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapeKey(key))
		if err != nil {
			return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
		}
		if err := mapHTTPError(resp); err != nil && !platform.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (o *Objects) PublicURL(bucket, key string) string {
	return o.c.baseURL + "/storage/v1/object/public/" + bucket + "/" + escapeKey(key)
}

func (o *Objects) ListBuckets(ctx context.Context) ([]platform.Bucket, error) {
	resp, err := o.c.service().
		SetContext(ctx).
		Get("/storage/v1/bucket")
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	var buckets []platform.Bucket
	if err := json.Unmarshal(resp.Body(), &buckets); err != nil {
		return nil, fmt.Errorf("decode buckets: %w", err)
	}
	return buckets, nil
}

type createBucketBody struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Public           bool     `json:"public"`
	FileSizeLimit    int64    `json:"file_size_limit,omitempty"`
	AllowedMimeTypes []string `json:"allowed_mime_types,omitempty"`
}

func (o *Objects) CreateBucket(ctx context.Context, spec platform.BucketSpec) error {
	resp, err := o.c.service().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(createBucketBody{
			ID:               spec.Name,
			Name:             spec.Name,
			Public:           spec.Public,
			FileSizeLimit:    spec.FileSizeLimit,
			AllowedMimeTypes: spec.AllowedMimeTypes,
		}).
		Post("/storage/v1/bucket")
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", spec.Name, err)
	}
	if err := mapHTTPError(resp); err != nil {
		if platform.IsConflict(err) || platform.IsBucketExists(err) {
			return fmt.Errorf("%w: %s", platform.ErrBucketExists, spec.Name)
		}
		return err
	}
	return nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ platform.Objects = (*Objects)(nil)
