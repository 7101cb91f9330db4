package qrcode

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPNGUsesFixedModuleSize(t *testing.T) {
	data, err := PNG("https://example.com/u/user-1")
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != b.Dy() {
		t.Fatalf("expected square image, got %dx%d", b.Dx(), b.Dy())
	}
	if b.Dx()%ModuleSize != 0 || b.Dx() < 21*ModuleSize {
		t.Fatalf("unexpected size %d", b.Dx())
	}
}

func TestPNGGrowsWithContent(t *testing.T) {
	short, err := PNG("hi")
	if err != nil {
		t.Fatalf("PNG short: %v", err)
	}
	long, err := PNG(string(bytes.Repeat([]byte("x"), 200)))
	if err != nil {
		t.Fatalf("PNG long: %v", err)
	}
	a, _ := png.DecodeConfig(bytes.NewReader(short))
	b, _ := png.DecodeConfig(bytes.NewReader(long))
	if b.Width <= a.Width {
		t.Fatalf("expected larger symbol for longer content, got %d <= %d", b.Width, a.Width)
	}
}

func TestPNGRejectsEmptyContent(t *testing.T) {
	if _, err := PNG(""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "code.png")
	if err := WriteFile("hello", path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("not a png: %v", err)
	}
}
