// Package matches serves the caller's matches with their companions.
package matches

import (
	"context"

	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
)

var companionEmbed = platform.Embed{Alias: "companion", Table: schema.Companions, ForeignKey: "companion_id"}

// Service implements get-matches.
type Service struct {
	Records platform.Records
}

// NewService constructs a Service.
func NewService(records platform.Records) *Service {
	return &Service{Records: records}
}

// Match returns one match of userID with its companion, or nil when absent.
func (s *Service) Match(ctx context.Context, userID, id string) (platform.Row, error) {
	s.ensure(ctx)
	row, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   schema.Matches,
		Embeds:  []platform.Embed{companionEmbed},
		Filters: []platform.Filter{platform.Eq("id", id), platform.Eq("user_id", userID)},
	})
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperr.Upstream("Failed to fetch match", err)
	}
	return row, nil
}

// Active lists the active matches of userID, newest first.
func (s *Service) Active(ctx context.Context, userID string) ([]platform.Row, error) {
	s.ensure(ctx)
	rows, err := s.Records.Select(ctx, platform.Query{
		Table:   schema.Matches,
		Embeds:  []platform.Embed{companionEmbed},
		Filters: []platform.Filter{platform.Eq("user_id", userID), platform.Eq("is_active", true)},
		Order:   []platform.Order{{Column: "matched_at", Desc: true}},
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch matches", err)
	}
	if rows == nil {
		rows = []platform.Row{}
	}
	return rows, nil
}

// Details lists active matches flattened with conversation and unread state.
func (s *Service) Details(ctx context.Context, userID string) ([]Detail, error) {
	s.ensure(ctx)
	raw, err := s.Records.Call(ctx, schema.MatchesWithDetails, map[string]any{"p_user_id": userID})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch matches with details", err)
	}
	details, err := decodeDetails(raw)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch matches with details", err)
	}
	return details, nil
}

func (s *Service) ensure(ctx context.Context) {
	schema.Ensurer{Records: s.Records}.Ensure(ctx, schema.Matches)
}
