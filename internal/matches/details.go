package matches

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// detailRow is one flat row of get_user_matches_with_details.
type detailRow struct {
	MatchID              any `json:"match_id"`
	MatchedAt            any `json:"matched_at"`
	CompanionID          any `json:"companion_id"`
	CompanionName        any `json:"companion_name"`
	CompanionAge         any `json:"companion_age"`
	CompanionBio         any `json:"companion_bio"`
	CompanionImageURL    any `json:"companion_image_url"`
	CompanionPersonality any `json:"companion_personality"`
	CompanionInterests   any `json:"companion_interests"`
	CompanionScore       any `json:"companion_compatibility_score"`
	ConversationID       any `json:"conversation_id"`
	LastMessageContent   any `json:"last_message_content"`
	LastMessageCreatedAt any `json:"last_message_created_at"`
	LastMessageSenderID  any `json:"last_message_sender_id"`
	UnreadCount          any `json:"unread_count"`
}

// Detail is a match shaped for the matches screen.
type Detail struct {
	MatchID        any          `json:"match_id"`
	MatchedAt      any          `json:"matched_at"`
	Companion      Companion    `json:"companion"`
	ConversationID any          `json:"conversation_id,omitempty"`
	LastMessage    *LastMessage `json:"last_message,omitempty"`
	UnreadCount    int          `json:"unread_count"`
}

type Companion struct {
	ID                 any `json:"id"`
	Name               any `json:"name"`
	Age                any `json:"age"`
	Bio                any `json:"bio"`
	ImageURL           any `json:"image_url"`
	Personality        any `json:"personality"`
	Interests          any `json:"interests"`
	CompatibilityScore any `json:"compatibility_score"`
}

type LastMessage struct {
	Content   any `json:"content"`
	CreatedAt any `json:"created_at"`
	SenderID  any `json:"sender_id,omitempty"`
}

// decodeDetails turns the raw function result into Details. A null result is empty.
func decodeDetails(raw json.RawMessage) ([]Detail, error) {
	var rows []detailRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode match details: %w", err)
		}
	}

	out := make([]Detail, 0, len(rows))
	for _, row := range rows {
		interests := row.CompanionInterests
		if interests == nil {
			interests = []any{}
		}
		d := Detail{
			MatchID:   row.MatchID,
			MatchedAt: row.MatchedAt,
			Companion: Companion{
				ID:                 row.CompanionID,
				Name:               row.CompanionName,
				Age:                row.CompanionAge,
				Bio:                row.CompanionBio,
				ImageURL:           row.CompanionImageURL,
				Personality:        row.CompanionPersonality,
				Interests:          interests,
				CompatibilityScore: row.CompanionScore,
			},
			UnreadCount: count(row.UnreadCount),
		}
		if present(row.ConversationID) {
			d.ConversationID = row.ConversationID
		}
		if present(row.LastMessageContent) {
			d.LastMessage = &LastMessage{
				Content:   row.LastMessageContent,
				CreatedAt: row.LastMessageCreatedAt,
			}
			if present(row.LastMessageSenderID) {
				d.LastMessage.SenderID = row.LastMessageSenderID
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// present reports whether a nullable column carries a value. Null and the
// empty string count as absent; numbers, including zero, are values.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	}
	return true
}

// count reads a bigint that may arrive as a number or a string.
func count(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
