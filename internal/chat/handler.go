package chat

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/server/respond"
	"companion-backend/internal/shared/util"
)

// Handler serves get-conversations and send-message.
type Handler struct {
	Svc   *Service
	Guard endpoint.Guard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard endpoint.Guard) *Handler {
	return &Handler{Svc: svc, Guard: guard}
}

// RegisterRoutes attaches the chat functions to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/get-conversations", h.Guard.Authenticated([]string{http.MethodGet, http.MethodPost}, h.conversations))
	rg.Any("/send-message", h.Guard.Authenticated([]string{http.MethodPost}, h.send))
}

func (h *Handler) conversations(c *gin.Context, caller platform.Identity) {
	ctx := c.Request.Context()

	if id := strings.TrimSpace(c.Query("id")); id != "" {
		page := Page{
			Offset: util.IntParam(c.Query("offset"), 0, 0, math.MaxInt),
			Limit:  util.IntParam(c.Query("limit"), DefaultPageSize, 1, MaxPageSize),
		}
		conv, err := h.Svc.Conversation(ctx, caller.UserID, id, util.BoolParam(c.Query("messages")), page)
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.Data(c, conv)
		return
	}

	list, err := h.Svc.Conversations(ctx, caller.UserID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, list)
}

type sendRequest struct {
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	MessageType    string         `json:"message_type"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *Handler) send(c *gin.Context, caller platform.Identity) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}

	msg, err := h.Svc.Send(c.Request.Context(), caller.UserID, NewMessage{
		ConversationID: strings.TrimSpace(req.ConversationID),
		Content:        req.Content,
		Type:           strings.TrimSpace(req.MessageType),
		Metadata:       req.Metadata,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, msg)
}
