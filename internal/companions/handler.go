package companions

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/server/respond"
	"companion-backend/internal/shared/util"
)

// Handler serves get-companions.
type Handler struct {
	Svc   *Service
	Guard endpoint.Guard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard endpoint.Guard) *Handler {
	return &Handler{Svc: svc, Guard: guard}
}

// RegisterRoutes attaches get-companions to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/get-companions", h.Guard.Authenticated([]string{http.MethodGet, http.MethodPost}, h.get))
}

func (h *Handler) get(c *gin.Context, _ platform.Identity) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		row, err := h.Svc.Get(c.Request.Context(), id)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if row == nil {
			respond.Data(c, nil)
			return
		}
		respond.Data(c, row)
		return
	}

	rows, err := h.Svc.List(c.Request.Context(), util.IntParam(c.Query("limit"), DefaultLimit, 1, MaxLimit))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Data(c, rows)
}
