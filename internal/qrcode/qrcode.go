// Package qrcode renders share codes (profile links, invite URLs) as PNG images.
package qrcode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goqrcode "github.com/skip2/go-qrcode"
)

// ModuleSize is the pixel width of one QR module.
const ModuleSize = 5

// DefaultFileName is used when no output path is given.
const DefaultFileName = "qrcode.png"

var ErrEmptyContent = errors.New("qr content is empty")

// PNG encodes content at low error correction, ModuleSize pixels per module.
func PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	code, err := goqrcode.New(content, goqrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return code.PNG(-ModuleSize)
}

// WriteFile writes the PNG for content to path, creating parent directories.
func WriteFile(content, path string) error {
	if path == "" {
		path = DefaultFileName
	}
	data, err := PNG(content)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
