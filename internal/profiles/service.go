package profiles

import (
	"context"
	"time"

	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
)

// Service reads and updates the caller's rows.
type Service struct {
	Records platform.Records
	Now     func() time.Time
}

// NewService constructs a Service.
func NewService(records platform.Records) *Service {
	return &Service{Records: records, Now: time.Now}
}

// Get returns the caller's row of section, or nil when there is none.
func (s *Service) Get(ctx context.Context, userID string, section Section) (platform.Row, error) {
	schema.Ensurer{Records: s.Records}.Ensure(ctx, section.Ensure...)

	row, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   section.Table,
		Filters: []platform.Filter{platform.Eq(section.KeyCol, userID)},
	})
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperr.Upstream("Failed to fetch "+section.Label, err)
	}
	return row, nil
}

// Update applies updates to the caller's row of section and returns it.
func (s *Service) Update(ctx context.Context, userID string, section Section, updates map[string]any) (platform.Row, error) {
	if err := section.CheckUpdates(updates); err != nil {
		return nil, err
	}
	schema.Ensurer{Records: s.Records}.Ensure(ctx, section.Table)

	rows, err := s.Records.Update(ctx, section.Table, platform.Row(updates), platform.Eq(section.KeyCol, userID))
	if err != nil {
		return nil, apperr.Upstream("Failed to update "+section.Label, err)
	}
	if len(rows) != 1 {
		return nil, apperr.Upstream("Failed to update "+section.Label, platform.NotFound(section.Table))
	}
	return rows[0], nil
}

// TouchLastActive stamps the caller's profile with the current time.
func (s *Service) TouchLastActive(ctx context.Context, userID string) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	_, err := s.Records.Update(ctx, schema.UserProfiles,
		platform.Row{"last_active_at": now().UTC().Format(time.RFC3339Nano)},
		platform.Eq("id", userID))
	if err != nil {
		return apperr.Upstream("Failed to update last active", err)
	}
	return nil
}
