package setup

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/schema"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/server/respond"
)

// Handler serves initialize and create-table-user-banners.
type Handler struct {
	Svc   *Service
	Guard endpoint.Guard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard endpoint.Guard) *Handler {
	return &Handler{Svc: svc, Guard: guard}
}

// RegisterRoutes attaches the setup functions to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/initialize", h.Guard.Admin([]string{http.MethodPost}, h.initialize))
	rg.Any("/create-table-user-banners", h.Guard.Admin([]string{http.MethodPost}, h.createBanners))
}

func (h *Handler) initialize(c *gin.Context) {
	report := h.Svc.Initialize(c.Request.Context())

	status := http.StatusOK
	message := "All tables and buckets initialized successfully"
	if !report.OK() {
		status = http.StatusMultiStatus
		message = "Initialization completed with some errors"
	}
	respond.JSON(c, status, gin.H{
		"success":   report.OK(),
		"message":   message,
		"results":   report,
		"timestamp": h.Svc.now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) createBanners(c *gin.Context) {
	created, err := h.Svc.EnsureTable(c.Request.Context(), schema.UserBanners)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{
		"message": "Table " + schema.UserBanners + " created or already exists",
		"created": created,
	})
}
