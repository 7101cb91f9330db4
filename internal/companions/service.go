// Package companions serves the catalogue of active companions.
package companions

import (
	"context"

	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Service implements get-companions.
type Service struct {
	Records platform.Records
}

// NewService constructs a Service.
func NewService(records platform.Records) *Service {
	return &Service{Records: records}
}

// Get returns one active companion, or nil when there is none with id.
func (s *Service) Get(ctx context.Context, id string) (platform.Row, error) {
	schema.Ensurer{Records: s.Records}.Ensure(ctx, schema.Companions)
	row, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   schema.Companions,
		Filters: []platform.Filter{platform.Eq("id", id), platform.Eq("is_active", true)},
	})
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperr.Upstream("Failed to fetch companion", err)
	}
	return row, nil
}

// List returns up to limit active companions, best compatibility first.
func (s *Service) List(ctx context.Context, limit int) ([]platform.Row, error) {
	schema.Ensurer{Records: s.Records}.Ensure(ctx, schema.Companions)
	rows, err := s.Records.Select(ctx, platform.Query{
		Table:   schema.Companions,
		Filters: []platform.Filter{platform.Eq("is_active", true)},
		Order:   []platform.Order{{Column: "compatibility_score", Desc: true}},
		Limit:   limit,
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch companions", err)
	}
	if rows == nil {
		rows = []platform.Row{}
	}
	return rows, nil
}
