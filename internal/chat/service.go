// Package chat lists the caller's conversations and appends messages to them.
package chat

import (
	"context"
	"time"

	"companion-backend/internal/platform"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/telemetry"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

var companionEmbed = platform.Embed{Alias: "companion", Table: schema.Companions, ForeignKey: "companion_id"}

// Page windows a message listing.
type Page struct {
	Offset int
	Limit  int
}

// NewMessage is a message sent by the caller.
type NewMessage struct {
	ConversationID string
	Content        string
	Type           string
	Metadata       map[string]any
}

// Service implements get-conversations and send-message.
type Service struct {
	Records platform.Records
	Now     func() time.Time
}

// NewService constructs a Service.
func NewService(records platform.Records) *Service {
	return &Service{Records: records, Now: time.Now}
}

// Conversation returns one conversation of the caller with its companion, or
// nil when the caller has no such conversation. When withMessages is set the
// requested page of messages is attached oldest first.
func (s *Service) Conversation(ctx context.Context, userID, id string, withMessages bool, page Page) (platform.Row, error) {
	s.ensure(ctx)

	conv, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   schema.Conversations,
		Embeds:  []platform.Embed{companionEmbed},
		Filters: []platform.Filter{platform.Eq("id", id), platform.Eq("user_id", userID)},
	})
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperr.Upstream("Failed to fetch conversation", err)
	}
	if !withMessages {
		return conv, nil
	}

	messages, err := s.Records.Select(ctx, platform.Query{
		Table:   schema.Messages,
		Filters: []platform.Filter{platform.Eq("conversation_id", id)},
		Order:   []platform.Order{{Column: "created_at", Desc: true}},
		Offset:  page.Offset,
		Limit:   page.Limit,
	})
	if err != nil {
		telemetry.Warn("chat.messages_fetch_failed", map[string]any{
			"conversation_id": id,
			"error":           err.Error(),
		})
		return conv, nil
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	conv["messages"] = messages
	return conv, nil
}

// Conversations lists the caller's active conversations that have at least
// one message, most recently active first, each with its latest message.
func (s *Service) Conversations(ctx context.Context, userID string) ([]platform.Row, error) {
	s.ensure(ctx)

	rows, err := s.Records.Select(ctx, platform.Query{
		Table: schema.Conversations,
		Embeds: []platform.Embed{
			companionEmbed,
			{
				Table:      schema.Messages,
				Columns:    []string{"id", "content", "message_type", "is_read", "created_at", "sender_id", "companion_id"},
				ForeignKey: "conversation_id",
				Many:       true,
				Inner:      true,
				Order:      []platform.Order{{Column: "created_at", Desc: true}},
				Limit:      1,
			},
		},
		Filters: []platform.Filter{platform.Eq("user_id", userID), platform.Eq("status", "active")},
		Order:   []platform.Order{{Column: "last_message_at", Desc: true}},
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch conversations", err)
	}

	out := make([]platform.Row, 0, len(rows))
	for _, row := range rows {
		row["last_message"] = first(row[schema.Messages])
		delete(row, schema.Messages)
		out = append(out, row)
	}
	return out, nil
}

// Send appends msg to a conversation owned by userID and returns the stored message.
func (s *Service) Send(ctx context.Context, userID string, msg NewMessage) (platform.Row, error) {
	if msg.ConversationID == "" || msg.Content == "" {
		return nil, apperr.BadRequest("Missing required fields: conversation_id, content")
	}
	if msg.Type == "" {
		msg.Type = "text"
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}
	s.ensure(ctx)

	_, err := s.Records.SelectOne(ctx, platform.Query{
		Table:   schema.Conversations,
		Columns: []string{"id"},
		Filters: []platform.Filter{platform.Eq("id", msg.ConversationID), platform.Eq("user_id", userID)},
	})
	if err != nil {
		if !platform.IsNotFound(err) {
			telemetry.Error("chat.ownership_check_failed", map[string]any{
				"conversation_id": msg.ConversationID,
				"error":           err.Error(),
			})
		}
		return nil, apperr.Forbidden("Conversation not found or access denied")
	}

	stored, err := s.Records.Insert(ctx, schema.Messages, platform.Row{
		"conversation_id": msg.ConversationID,
		"sender_id":       userID,
		"content":         msg.Content,
		"message_type":    msg.Type,
		"metadata":        msg.Metadata,
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to send message", err)
	}

	_, err = s.Records.Update(ctx, schema.Conversations,
		platform.Row{"last_message_at": s.now().UTC().Format(time.RFC3339Nano)},
		platform.Eq("id", msg.ConversationID))
	if err != nil {
		telemetry.Warn("chat.last_message_at_failed", map[string]any{
			"conversation_id": msg.ConversationID,
			"error":           err.Error(),
		})
	}
	return stored, nil
}

func (s *Service) ensure(ctx context.Context) {
	schema.Ensurer{Records: s.Records}.Ensure(ctx, schema.Conversations, schema.Messages)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// first returns the head of an embedded list in any of the shapes backends decode to.
func first(v any) any {
	switch list := v.(type) {
	case []platform.Row:
		if len(list) > 0 {
			return list[0]
		}
	case []map[string]any:
		if len(list) > 0 {
			return list[0]
		}
	case []any:
		if len(list) > 0 {
			return list[0]
		}
	}
	return nil
}
