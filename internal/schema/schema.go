// Package schema names the tables and database functions the handlers rely on.
package schema

import (
	"context"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/telemetry"
)

const (
	UserProfiles    = "user_profiles"
	UserPreferences = "user_preferences"
	UserStats       = "user_stats"
	UserProfilePics = "user_profile_pics"
	UserBanners     = "user_banners"
	Companions      = "companions"
	SwipeDecisions  = "swipe_decisions"
	Matches         = "matches"
	Conversations   = "conversations"
	Messages        = "messages"
)

// MatchesWithDetails is the aggregate read behind get-matches?details=true.
const MatchesWithDetails = "get_user_matches_with_details"

// Tables lists every table in creation order.
var Tables = []string{
	UserProfiles,
	UserPreferences,
	UserStats,
	UserProfilePics,
	UserBanners,
	Companions,
	SwipeDecisions,
	Matches,
	Conversations,
	Messages,
}

// UniqueKeys holds the per-caller conflict key of tables that allow one row per user.
var UniqueKeys = map[string][]string{
	UserPreferences: {"user_id"},
	UserStats:       {"user_id"},
	UserProfilePics: {"user_id"},
	UserBanners:     {"user_id"},
}

// EnsureFunction returns the idempotent create function for table.
func EnsureFunction(table string) string {
	return "create_table_" + table
}

// Ensurer calls table-ensure functions before first use. Failures are logged
// and never reach the caller.
type Ensurer struct {
	Records platform.Records
}

// Ensure runs the create function of each table in order.
func (e Ensurer) Ensure(ctx context.Context, tables ...string) {
	if e.Records == nil {
		return
	}
	for _, table := range tables {
		fn := EnsureFunction(table)
		if _, err := e.Records.Call(ctx, fn, nil); err != nil {
			telemetry.Warn("schema.ensure_failed", map[string]any{
				"function": fn,
				"error":    err.Error(),
			})
		}
	}
}
