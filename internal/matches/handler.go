package matches

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/server/respond"
	"companion-backend/internal/shared/util"
)

// Handler serves get-matches.
type Handler struct {
	Svc   *Service
	Guard endpoint.Guard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard endpoint.Guard) *Handler {
	return &Handler{Svc: svc, Guard: guard}
}

// RegisterRoutes attaches get-matches to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/get-matches", h.Guard.Authenticated([]string{http.MethodGet, http.MethodPost}, h.get))
}

func (h *Handler) get(c *gin.Context, caller platform.Identity) {
	ctx := c.Request.Context()

	if id := strings.TrimSpace(c.Query("id")); id != "" {
		match, err := h.Svc.Match(ctx, caller.UserID, id)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if match == nil {
			respond.Data(c, nil)
			return
		}
		respond.Data(c, match)
		return
	}

	if util.BoolParam(c.Query("details")) {
		details, err := h.Svc.Details(ctx, caller.UserID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.Data(c, details)
		return
	}

	list, err := h.Svc.Active(ctx, caller.UserID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, list)
}
