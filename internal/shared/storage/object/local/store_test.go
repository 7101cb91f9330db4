package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"companion-backend/internal/platform"
)

func TestUploadRemoveLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(dir, "http://localhost:8080/")
	caller := platform.Caller(platform.Identity{UserID: "u1", Token: "t"})

	if err := s.CreateBucket(ctx, platform.BucketSpec{Name: "banners", Public: true, FileSizeLimit: 10}); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := s.CreateBucket(ctx, platform.BucketSpec{Name: "banners"}); !platform.IsBucketExists(err) {
		t.Fatalf("expected bucket exists, got %v", err)
	}

	obj := platform.Object{Body: strings.NewReader("img"), Size: 3, ContentType: "image/png"}
	if err := s.Upload(ctx, caller, "banners", "u1/1-a.png", obj); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "banners", "u1", "1-a.png"))
	if err != nil || string(data) != "img" {
		t.Fatalf("stored file mismatch: %q %v", data, err)
	}

	again := platform.Object{Body: strings.NewReader("img"), Size: 3, ContentType: "image/png"}
	if err := s.Upload(ctx, caller, "banners", "u1/1-a.png", again); !platform.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	big := platform.Object{Body: strings.NewReader("0123456789AB"), Size: 12, ContentType: "image/png"}
	if err := s.Upload(ctx, caller, "banners", "u1/2-b.png", big); err == nil {
		t.Fatalf("expected size limit error")
	}
	other := platform.Object{Body: strings.NewReader("x"), Size: 1}
	if err := s.Upload(ctx, caller, "banners", "u2/1-a.png", other); !platform.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if got := s.PublicURL("banners", "u1/1-a.png"); got != "http://localhost:8080/storage/v1/object/public/banners/u1/1-a.png" {
		t.Fatalf("unexpected public url %q", got)
	}

	if err := s.Remove(ctx, caller, "banners", "u1/1-a.png", "u1/missing.png"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "banners", "u1", "1-a.png")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, got %v", err)
	}

	buckets, err := s.ListBuckets(ctx)
	if err != nil {
		t.Fatalf("ListBuckets: %v", err)
	}
	if len(buckets) != 1 || buckets[0].Name != "banners" || !buckets[0].Public {
		t.Fatalf("unexpected buckets %+v", buckets)
	}
}

func TestUploadRejectsTraversal(t *testing.T) {
	s := New(t.TempDir(), "")
	err := s.Upload(context.Background(), platform.ServiceRole(), "banners", "../escape.png", platform.Object{Body: strings.NewReader("x")})
	if err == nil {
		t.Fatalf("expected invalid key error")
	}
}
