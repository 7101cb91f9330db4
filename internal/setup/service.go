// Package setup provisions the buckets and tables the other functions expect.
package setup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"companion-backend/internal/media"
	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/config"
	"companion-backend/internal/shared/telemetry"
)

const (
	statusReady      = "created or already exists"
	statusMissingRPC = "RPC function not found (may be created by migrations)"
)

var (
	imageTypes     = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	companionTypes = []string{"image/jpeg", "image/png", "image/webp"}
)

// Report is the outcome of Initialize.
type Report struct {
	Tables    map[string]string `json:"tables"`
	Buckets   map[string]string `json:"buckets"`
	Functions map[string]string `json:"functions"`
	Errors    []string          `json:"errors"`
}

// OK reports whether every step succeeded.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Service runs the provisioning steps with the service-role credential.
type Service struct {
	Records platform.Records
	Objects platform.Objects
	Buckets []platform.BucketSpec
	Now     func() time.Time
}

// NewService constructs a Service provisioning the media buckets named in cfg.
func NewService(records platform.Records, objects platform.Objects, cfg config.Config) *Service {
	return &Service{
		Records: records,
		Objects: objects,
		Buckets: BucketSpecs(cfg),
		Now:     time.Now,
	}
}

// BucketSpecs lists the media buckets. Kinds sharing a bucket name yield one spec.
func BucketSpecs(cfg config.Config) []platform.BucketSpec {
	specs := []platform.BucketSpec{
		{Name: cfg.AvatarBucket(), Public: true, FileSizeLimit: media.MaxImageBytes, AllowedMimeTypes: imageTypes},
		{Name: cfg.CompanionImageBucket(), Public: true, FileSizeLimit: media.MaxCompanionImageBytes, AllowedMimeTypes: companionTypes},
		{Name: cfg.ProfilePictureBucket(), Public: true, FileSizeLimit: media.MaxImageBytes, AllowedMimeTypes: imageTypes},
		{Name: cfg.BannerBucket(), Public: true, FileSizeLimit: media.MaxImageBytes, AllowedMimeTypes: imageTypes},
	}
	seen := make(map[string]bool, len(specs))
	out := specs[:0]
	for _, s := range specs {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return out
}

// Initialize creates every bucket and calls every table-ensure function.
// Failures are collected; the run never stops early.
func (s *Service) Initialize(ctx context.Context) Report {
	report := Report{
		Tables:    map[string]string{},
		Buckets:   map[string]string{},
		Functions: map[string]string{},
		Errors:    []string{},
	}

	for _, spec := range s.Buckets {
		err := s.Objects.CreateBucket(ctx, spec)
		if err != nil && !platform.IsBucketExists(err) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s bucket: %s", spec.Name, err.Error()))
			continue
		}
		report.Buckets[spec.Name] = statusReady
	}

	for _, table := range schema.Tables {
		_, err := s.Records.Call(ctx, schema.EnsureFunction(table), nil)
		switch {
		case err == nil:
			report.Tables[table] = statusReady
		case missingFunction(err):
			report.Tables[table] = statusMissingRPC
		default:
			report.Errors = append(report.Errors, fmt.Sprintf("%s table: %s", table, err.Error()))
		}
	}

	telemetry.Info("setup.initialized", map[string]any{
		"buckets": len(report.Buckets),
		"tables":  len(report.Tables),
		"errors":  len(report.Errors),
	})
	return report
}

// EnsureTable calls the ensure function of one table. created reports whether
// the function said it created the table.
func (s *Service) EnsureTable(ctx context.Context, table string) (bool, error) {
	raw, err := s.Records.Call(ctx, schema.EnsureFunction(table), nil)
	if err != nil {
		return false, apperr.Upstream("Failed to create table", err)
	}
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true")), nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func missingFunction(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "function")
}
