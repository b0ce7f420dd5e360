package enrichment

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/middleware"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/response"
)

// UploadURLRequest is the body for POST /short-forms/upload-url.
type UploadURLRequest struct {
	OwnerPID    string `json:"ownerPid"`
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType"`
}

// CreateRequest is the body for POST /short-forms.
type CreateRequest struct {
	OwnerPID    string   `json:"ownerPid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	VideoKey    string   `json:"videoKey" binding:"required"`
	DurationSec *int     `json:"durationSec"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
}

// Handler serves the short-form API.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a short-form handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes. viewer resolves the optional caller identity;
// admin guards the maintenance endpoints.
func (h *Handler) Register(r gin.IRouter, viewer, admin gin.HandlerFunc) {
	g := r.Group("/short-forms", viewer)
	g.POST("/upload-url", h.UploadURL)
	g.POST("", h.Create)
	g.GET("/feed", h.Feed)
	g.GET("/search", h.Search)
	g.GET("/owner/:ownerPid", h.ListByOwner)
	g.GET("/:id", h.Detail)
	g.GET("/:id/reel", h.Detail)

	a := r.Group("/short-forms/admin", admin)
	a.POST("/generate-missing-thumbnails", h.GenerateMissingThumbnails)
	a.POST("/regenerate-thumbnail", h.RegenerateThumbnail)
	a.POST("/crawl", h.Crawl)
}

// owner prefers the authenticated viewer over a client-supplied pid.
func owner(c *gin.Context, fromBody string) string {
	if v := middleware.Viewer(c); v != "" {
		return v
	}
	return fromBody
}

// UploadURL handles POST /short-forms/upload-url.
func (h *Handler) UploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ticket, err := h.svc.IssueUploadURL(c.Request.Context(), owner(c, req.OwnerPID), req.FileName, req.ContentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ticket)
}

// Create handles POST /short-forms.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	asset, err := h.svc.RegisterAsset(c.Request.Context(), RegisterInput{
		OwnerID:     owner(c, req.OwnerPID),
		Title:       req.Title,
		Description: req.Description,
		VideoKey:    req.VideoKey,
		DurationSec: req.DurationSec,
		Tags:        req.Tags,
		Visibility:  req.Visibility,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, asset)
}

// Feed handles GET /short-forms/feed?cursor=&size=.
func (h *Handler) Feed(c *gin.Context) {
	page, err := h.svc.GetFeed(c.Request.Context(), c.Query("cursor"), querySize(c), middleware.Viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, page)
}

// Search handles GET /short-forms/search?tag=&cursor=&size=.
func (h *Handler) Search(c *gin.Context) {
	page, err := h.svc.Search(c.Request.Context(), c.Query("tag"), c.Query("cursor"), querySize(c), middleware.Viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, page)
}

// Detail handles GET /short-forms/:id and /short-forms/:id/reel.
func (h *Handler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid short-form id")
		return
	}
	d, err := h.svc.GetDetail(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, d)
}

// ListByOwner handles GET /short-forms/owner/:ownerPid.
func (h *Handler) ListByOwner(c *gin.Context) {
	items, err := h.svc.ListByOwner(c.Request.Context(), c.Param("ownerPid"), middleware.Viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, items)
}

// GenerateMissingThumbnails handles POST /short-forms/admin/generate-missing-thumbnails.
func (h *Handler) GenerateMissingThumbnails(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	n, err := h.svc.GenerateMissingThumbnails(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"scheduled": n})
}

// RegenerateThumbnail handles POST /short-forms/admin/regenerate-thumbnail?videoKey=.
func (h *Handler) RegenerateThumbnail(c *gin.Context) {
	key := c.Query("videoKey")
	if key == "" {
		response.BadRequest(c, "videoKey is required")
		return
	}
	if err := h.svc.RegenerateThumbnail(c.Request.Context(), key); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"videoKey": key, "scheduled": true})
}

// Crawl handles POST /short-forms/admin/crawl?prefix=.
func (h *Handler) Crawl(c *gin.Context) {
	report, err := h.svc.Reconcile(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, report)
}

func querySize(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCursor):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrAssetNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrConflict):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("short-form request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "internal error")
	}
}
