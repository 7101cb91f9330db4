package media

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/server/middleware"
	"companion-backend/internal/shared/server/respond"
	"companion-backend/internal/shared/util"
)

var (
	uploadMethods = []string{http.MethodPost}
	readMethods   = []string{http.MethodGet, http.MethodPost}
	deleteMethods = []string{http.MethodDelete}

	errNoFile = apperr.BadRequest("No file provided")
)

// Handler serves the media functions.
type Handler struct {
	Svc   *Service
	Kinds Kinds
	Guard endpoint.Guard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, kinds Kinds, guard endpoint.Guard) *Handler {
	return &Handler{Svc: svc, Kinds: kinds, Guard: guard}
}

// RegisterRoutes attaches the media functions to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/upload-avatar", h.Guard.Authenticated(uploadMethods, h.upload(h.Kinds.Avatar)))
	rg.Any("/upload-banner", h.Guard.Authenticated(uploadMethods, h.upload(h.Kinds.Banner)))
	rg.Any("/upload-profile-picture", h.Guard.Authenticated(uploadMethods, h.upload(h.Kinds.ProfilePicture)))

	rg.Any("/get-banner", h.Guard.Authenticated(readMethods, h.get(h.Kinds.Banner)))
	rg.Any("/get-profile-picture", h.Guard.Authenticated(readMethods, h.get(h.Kinds.ProfilePicture)))

	rg.Any("/delete-banner", h.Guard.Authenticated(deleteMethods, h.remove(h.Kinds.Banner)))
	rg.Any("/delete-profile-picture", h.Guard.Authenticated(deleteMethods, h.remove(h.Kinds.ProfilePicture)))
}

func (h *Handler) upload(kind Kind) endpoint.Func {
	return func(c *gin.Context, caller platform.Identity) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*kind.MaxBytes)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.Error(c, apperr.BadRequest(fmt.Sprintf("File size must be less than %dMB", kind.MaxBytes>>20)))
				return
			}
			respond.Error(c, errNoFile)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, errNoFile)
			return
		}
		defer file.Close()

		stored, err := h.Svc.Replace(c.Request.Context(), caller, kind, Upload{
			FileName:    fileHeader.Filename,
			ContentType: strings.TrimSpace(fileHeader.Header.Get("Content-Type")),
			Size:        fileHeader.Size,
			Body:        file,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		middleware.SetObjectKey(c, stored.Key)

		payload := gin.H{"url": stored.URL, "key": stored.Key}
		if kind.Binding == BindProfileURL {
			payload["path"] = stored.Key
		}
		respond.OK(c, payload)
	}
}

func (h *Handler) get(kind Kind) endpoint.Func {
	return func(c *gin.Context, caller platform.Identity) {
		cacheBust := util.BoolParam(c.Query("cacheBust"))

		stored, ok, err := h.Svc.Current(c.Request.Context(), caller, kind, cacheBust)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if !ok {
			respond.OK(c, gin.H{"url": nil, "message": fmt.Sprintf("No %s found", kind.Label)})
			return
		}
		respond.OK(c, gin.H{"url": stored.URL, "key": stored.Key})
	}
}

func (h *Handler) remove(kind Kind) endpoint.Func {
	return func(c *gin.Context, caller platform.Identity) {
		deleted, err := h.Svc.Delete(c.Request.Context(), caller, kind)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if !deleted {
			respond.OK(c, gin.H{"message": fmt.Sprintf("No %s to delete", kind.Label)})
			return
		}
		respond.OK(c, gin.H{"message": capitalize(kind.Label) + " deleted successfully"})
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
