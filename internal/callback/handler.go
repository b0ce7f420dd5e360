package callback

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/middleware"
)

const (
	routePrefix    = "/internal/jobs/"
	completeSuffix = "/complete"
)

// Ack is the response contract of the AI worker callback.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler serves the internal callback endpoints.
type Handler struct {
	svc    *Service
	token  string
	logger *zap.Logger
}

// NewHandler creates a callback handler. An empty token disables the check.
func NewHandler(svc *Service, token string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, token: token, logger: logger}
}

// Register mounts POST /internal/jobs/{jobId}/complete and GET /internal/jobs/health.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/internal/jobs")
	g.GET("/health", h.Health)
	g.POST("/*path", h.Complete)
}

// Health handles GET /internal/jobs/health.
func (h *Handler) Health(c *gin.Context) {
	if !middleware.ValidInternalToken(h.token, c.GetHeader(middleware.InternalTokenHeader)) {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.String(http.StatusOK, "OK")
}

// Complete handles POST /internal/jobs/{url-encoded jobId}/complete. The job
// id is a video key and may contain encoded slashes, so it is taken from the
// escaped request path.
func (h *Handler) Complete(c *gin.Context) {
	if !middleware.ValidInternalToken(h.token, c.GetHeader(middleware.InternalTokenHeader)) {
		h.logger.Warn("callback rejected: bad internal token", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, Ack{Message: ErrUnauthorized.Error()})
		return
	}
	jobID, ok := JobIDFromPath(c.Request.URL.EscapedPath())
	if !ok {
		c.JSON(http.StatusNotFound, Ack{Message: "unknown callback path"})
		return
	}

	var p Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, Ack{Message: "invalid request: " + err.Error()})
		return
	}

	done, err := h.svc.Complete(c.Request.Context(), jobID, &p)
	switch {
	case err == nil:
		msg := "callback processed"
		if done.Duplicate {
			msg = "callback already processed"
		}
		c.JSON(http.StatusOK, Ack{Success: true, Message: msg})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, Ack{Message: err.Error()})
	case errors.Is(err, ErrAssetNotFound):
		c.JSON(http.StatusNotFound, Ack{Message: err.Error()})
	default:
		h.logger.Error("callback failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Ack{Message: "callback processing failed"})
	}
}

// JobIDFromPath extracts and decodes the job id from an escaped
// /internal/jobs/{jobId}/complete path.
func JobIDFromPath(escaped string) (string, bool) {
	i := strings.Index(escaped, routePrefix)
	if i < 0 {
		return "", false
	}
	rest := escaped[i+len(routePrefix):]
	if !strings.HasSuffix(rest, completeSuffix) {
		return "", false
	}
	raw := strings.TrimSuffix(rest, completeSuffix)
	if raw == "" {
		return "", false
	}
	id, err := url.QueryUnescape(raw)
	if err != nil || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
