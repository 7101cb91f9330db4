package memory

import (
	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
)

func installSchema(r *Records) {
	for table, cols := range schema.UniqueKeys {
		r.unique[table] = cols
	}
	for _, table := range schema.Tables {
		r.funcs[schema.EnsureFunction(table)] = func(map[string]any, func(platform.Query) []platform.Row) (any, error) {
			return nil, nil
		}
	}
	r.funcs[schema.MatchesWithDetails] = matchesWithDetails
}

// matchesWithDetails mirrors the SQL function of the same name: active
// matches newest first, flattened with the companion, the conversation, its
// latest message and the count of unread companion messages.
func matchesWithDetails(params map[string]any, read func(platform.Query) []platform.Row) (any, error) {
	userID := params["p_user_id"]
	matches := read(platform.Query{
		Table:   schema.Matches,
		Filters: []platform.Filter{platform.Eq("user_id", userID), platform.Eq("is_active", true)},
		Order:   []platform.Order{{Column: "matched_at", Desc: true}},
	})

	out := make([]platform.Row, 0, len(matches))
	for _, m := range matches {
		row := platform.Row{
			"match_id":   m["id"],
			"matched_at": m["matched_at"],
		}
		companionID := m["companion_id"]
		row["companion_id"] = companionID
		if companions := read(platform.Query{
			Table:   schema.Companions,
			Filters: []platform.Filter{platform.Eq("id", companionID)},
			Limit:   1,
		}); len(companions) == 1 {
			c := companions[0]
			row["companion_name"] = c["name"]
			row["companion_age"] = c["age"]
			row["companion_bio"] = c["bio"]
			row["companion_image_url"] = c["image_url"]
			row["companion_personality"] = c["personality"]
			row["companion_interests"] = c["interests"]
			row["companion_compatibility_score"] = c["compatibility_score"]
		}

		row["unread_count"] = 0
		conversations := read(platform.Query{
			Table:   schema.Conversations,
			Filters: []platform.Filter{platform.Eq("user_id", userID), platform.Eq("companion_id", companionID)},
			Limit:   1,
		})
		if len(conversations) == 1 {
			conversationID := conversations[0]["id"]
			row["conversation_id"] = conversationID
			messages := read(platform.Query{
				Table:   schema.Messages,
				Filters: []platform.Filter{platform.Eq("conversation_id", conversationID)},
				Order:   []platform.Order{{Column: "created_at", Desc: true}},
			})
			if len(messages) > 0 {
				row["last_message_content"] = messages[0]["content"]
				row["last_message_created_at"] = messages[0]["created_at"]
				row["last_message_sender_id"] = messages[0]["sender_id"]
			}
			unread := 0
			for _, msg := range messages {
				if isRead, _ := msg["is_read"].(bool); !isRead && !valuesEqual(msg["sender_id"], userID) {
					unread++
				}
			}
			row["unread_count"] = unread
		}
		out = append(out, row)
	}
	return out, nil
}
