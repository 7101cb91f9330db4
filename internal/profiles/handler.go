package profiles

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/server/respond"
)

const typeLastActive = "last_active"

// Handler serves get-user-profile and update-user-profile.
type Handler struct {
	Svc   *Service
	Guard endpoint.Guard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard endpoint.Guard) *Handler {
	return &Handler{Svc: svc, Guard: guard}
}

// RegisterRoutes attaches the profile functions to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/get-user-profile", h.Guard.Authenticated([]string{http.MethodGet, http.MethodPost}, h.get))
	rg.Any("/update-user-profile", h.Guard.Authenticated([]string{http.MethodPost, http.MethodPatch}, h.update))
}

func (h *Handler) get(c *gin.Context, caller platform.Identity) {
	section, err := ParseSection(c.Query("type"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	row, err := h.Svc.Get(c.Request.Context(), caller.UserID, section)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if row == nil {
		respond.Data(c, nil)
		return
	}
	respond.Data(c, row)
}

type updateRequest struct {
	Type    string         `json:"type"`
	Updates map[string]any `json:"updates"`
}

func (h *Handler) update(c *gin.Context, caller platform.Identity) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}

	if strings.EqualFold(strings.TrimSpace(req.Type), typeLastActive) {
		if err := h.Svc.TouchLastActive(c.Request.Context(), caller.UserID); err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, gin.H{"message": "Last active updated"})
		return
	}

	section, err := ParseSection(req.Type)
	if err != nil {
		respond.Error(c, err)
		return
	}
	row, err := h.Svc.Update(c.Request.Context(), caller.UserID, section, req.Updates)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, row)
}
