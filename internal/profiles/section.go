// Package profiles serves the caller's profile, preferences and stats rows.
package profiles

import (
	"fmt"
	"sort"
	"strings"

	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
)

// Section is one per-user row the profile functions read and write.
type Section struct {
	Name     string
	Label    string
	Table    string
	KeyCol   string
	Ensure   []string
	readOnly map[string]struct{}
}

var (
	Profile = Section{
		Name:     "profile",
		Label:    "user profile",
		Table:    schema.UserProfiles,
		KeyCol:   "id",
		Ensure:   []string{schema.UserProfiles},
		readOnly: fields("id", "email", "created_at"),
	}
	Preferences = Section{
		Name:     "preferences",
		Label:    "user preferences",
		Table:    schema.UserPreferences,
		KeyCol:   "user_id",
		Ensure:   []string{schema.UserProfiles, schema.UserPreferences},
		readOnly: fields("id", "user_id", "created_at"),
	}
	Stats = Section{
		Name:     "stats",
		Label:    "user stats",
		Table:    schema.UserStats,
		KeyCol:   "user_id",
		Ensure:   []string{schema.UserProfiles, schema.UserStats},
		readOnly: fields("id", "user_id", "created_at"),
	}
)

var sections = map[string]Section{
	Profile.Name:     Profile,
	Preferences.Name: Preferences,
	Stats.Name:       Stats,
}

// ParseSection maps the type selector to a Section. Empty selects the profile.
func ParseSection(raw string) (Section, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Profile, nil
	}
	s, ok := sections[raw]
	if !ok {
		return Section{}, apperr.BadRequest(fmt.Sprintf("Invalid type: %s", raw))
	}
	return s, nil
}

// CheckUpdates rejects empty updates and writes to protected columns.
func (s Section) CheckUpdates(updates map[string]any) error {
	if len(updates) == 0 {
		return apperr.BadRequest("No updates provided")
	}
	var blocked []string
	for col := range updates {
		if _, ok := s.readOnly[col]; ok {
			blocked = append(blocked, col)
		}
	}
	if len(blocked) > 0 {
		sort.Strings(blocked)
		return apperr.BadRequest("Cannot update protected fields: " + strings.Join(blocked, ", "))
	}
	return nil
}

func fields(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}
