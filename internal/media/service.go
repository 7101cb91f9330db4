package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/metrics"
	"companion-backend/internal/shared/storage/object"
	"companion-backend/internal/shared/telemetry"
)

const cacheControl = "max-age=3600"

// Upload is a file received from the caller.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Stored is the active object of a kind.
type Stored struct {
	URL string
	Key string
}

// Service implements upload-with-replace, read and delete for every kind.
type Service struct {
	Records platform.Records
	Objects platform.Objects
	Keys    object.KeyGen
	Now     func() time.Time
}

// NewService constructs a Service with random object keys.
func NewService(records platform.Records, objects platform.Objects) *Service {
	return &Service{Records: records, Objects: objects, Now: time.Now}
}

// Validate rejects non-images and files above the kind's ceiling.
func (k Kind) Validate(up Upload) error {
	if !strings.HasPrefix(strings.ToLower(up.ContentType), "image/") {
		return apperr.BadRequest("File must be an image")
	}
	if up.Size > k.MaxBytes {
		return apperr.BadRequest(fmt.Sprintf("File size must be less than %dMB", k.MaxBytes>>20))
	}
	return nil
}

// Replace stores up as the caller's new object of kind and releases the old one.
// The bound record never references an object that failed to upload.
func (s *Service) Replace(ctx context.Context, caller platform.Identity, kind Kind, up Upload) (Stored, error) {
	if err := kind.Validate(up); err != nil {
		return Stored{}, err
	}
	s.ensure(ctx, kind)
	if kind.VerifyBucket {
		if err := s.verifyBucket(ctx, kind.Bucket); err != nil {
			return Stored{}, err
		}
	}

	cred := platform.Caller(caller)
	if oldKey, ok := s.activeKey(ctx, caller.UserID, kind); ok {
		if err := s.Objects.Remove(ctx, cred, kind.Bucket, oldKey); err != nil {
			metrics.IncOrphanedObject()
			telemetry.Warn("media.old_object_delete_failed", map[string]any{
				"kind":    kind.Name,
				"bucket":  kind.Bucket,
				"key":     oldKey,
				"user_id": caller.UserID,
				"error":   err.Error(),
			})
		}
	}

	key := s.Keys.Key(caller.UserID, up.FileName)
	err := s.Objects.Upload(ctx, cred, kind.Bucket, key, platform.Object{
		Body:         up.Body,
		Size:         up.Size,
		ContentType:  up.ContentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		metrics.IncObjectUploadFailed()
		telemetry.Error("media.upload_failed", map[string]any{
			"kind":    kind.Name,
			"bucket":  kind.Bucket,
			"key":     key,
			"user_id": caller.UserID,
			"error":   err.Error(),
		})
		return Stored{}, apperr.Upstream("Failed to upload "+kind.Label, err)
	}

	url := s.Objects.PublicURL(kind.Bucket, key)
	if err := s.bind(ctx, caller.UserID, kind, key, url); err != nil {
		if rmErr := s.Objects.Remove(ctx, cred, kind.Bucket, key); rmErr != nil {
			metrics.IncOrphanedObject()
			telemetry.Warn("media.cleanup_failed", map[string]any{
				"kind":  kind.Name,
				"key":   key,
				"error": rmErr.Error(),
			})
		}
		return Stored{}, err
	}

	metrics.IncObjectUploaded()
	return Stored{URL: url, Key: key}, nil
}

// Current returns the caller's active object of kind, or ok=false when none.
func (s *Service) Current(ctx context.Context, caller platform.Identity, kind Kind, cacheBust bool) (Stored, bool, error) {
	s.ensure(ctx, kind)
	row, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   kind.Table,
		Columns: []string{kind.Column},
		Filters: []platform.Filter{platform.Eq(kind.ownerColumn(), caller.UserID)},
	})
	if err != nil {
		if platform.IsNotFound(err) {
			return Stored{}, false, nil
		}
		return Stored{}, false, apperr.Upstream("Failed to query "+kind.Label, err)
	}
	key, _ := row[kind.Column].(string)
	if key == "" {
		return Stored{}, false, nil
	}

	url := s.Objects.PublicURL(kind.Bucket, key)
	if cacheBust {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "t=" + strconv.FormatInt(s.now().UnixMilli(), 10)
	}
	return Stored{URL: url, Key: key}, true, nil
}

// Delete removes the caller's active object of kind and its record. It
// reports false when there was nothing to delete.
func (s *Service) Delete(ctx context.Context, caller platform.Identity, kind Kind) (bool, error) {
	s.ensure(ctx, kind)
	key, ok := s.activeKey(ctx, caller.UserID, kind)
	if !ok {
		return false, nil
	}
	if err := s.Objects.Remove(ctx, platform.Caller(caller), kind.Bucket, key); err != nil {
		return false, apperr.Upstream(fmt.Sprintf("Failed to delete %s from storage", kind.Label), err)
	}
	if err := s.Records.Delete(ctx, kind.Table, platform.Eq(kind.ownerColumn(), caller.UserID)); err != nil {
		telemetry.Error("media.record_delete_failed", map[string]any{
			"kind":    kind.Name,
			"user_id": caller.UserID,
			"error":   err.Error(),
		})
	}
	return true, nil
}

func (s *Service) bind(ctx context.Context, userID string, kind Kind, key, url string) error {
	if kind.Binding == BindProfileURL {
		rows, err := s.Records.Update(ctx, kind.Table, platform.Row{kind.Column: url}, platform.Eq("id", userID))
		if err != nil {
			return apperr.Upstream("Failed to update user profile", err)
		}
		if len(rows) == 0 {
			return apperr.New(http.StatusInternalServerError, "Failed to update user profile: profile not found")
		}
		return nil
	}
	_, err := s.Records.Upsert(ctx, kind.Table, platform.Row{"user_id": userID, kind.Column: key}, "user_id")
	if err != nil {
		return apperr.Upstream(fmt.Sprintf("Failed to update %s record", kind.Label), err)
	}
	return nil
}

// activeKey reads the bound key. Lookup failures count as "no object".
func (s *Service) activeKey(ctx context.Context, userID string, kind Kind) (string, bool) {
	row, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   kind.Table,
		Columns: []string{kind.Column},
		Filters: []platform.Filter{platform.Eq(kind.ownerColumn(), userID)},
	})
	if err != nil {
		return "", false
	}
	value, _ := row[kind.Column].(string)
	if value == "" {
		return "", false
	}
	if kind.Binding == BindProfileURL {
		return platform.KeyFromPublicURL(s.Objects, kind.Bucket, value)
	}
	return value, true
}

func (s *Service) verifyBucket(ctx context.Context, bucket string) error {
	buckets, err := s.Objects.ListBuckets(ctx)
	if err != nil {
		telemetry.Warn("media.list_buckets_failed", map[string]any{"error": err.Error()})
		return nil
	}
	for _, b := range buckets {
		if b.ID == bucket || b.Name == bucket {
			return nil
		}
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	telemetry.Error("media.bucket_missing", map[string]any{"bucket": bucket, "available": names})
	return apperr.New(http.StatusInternalServerError,
		fmt.Sprintf("Storage bucket '%s' not found. Run initialize or create it first.", bucket))
}

func (s *Service) ensure(ctx context.Context, kind Kind) {
	schema.Ensurer{Records: s.Records}.Ensure(ctx, kind.Table)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
