package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/usecase"
)

// ImageRunner runs the image passes triggered through the admin API
type ImageRunner interface {
	AssignImages(ctx context.Context, opts usecase.RunOptions) (*domain.RunSummary, error)
	RepairImages(ctx context.Context, opts usecase.RunOptions) (*domain.RepairReport, error)
	Audit(ctx context.Context, probe bool) (*domain.AuditReport, error)
}

// APIError is the body of every error response
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps an APIError
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	images ImageRunner
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(images ImageRunner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		images: images,
		logger: logger.Named("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stanslist-imagesync",
		"version": "1.0.0",
	})
}

// AssignImages handles POST /api/v1/images/assign?dry_run=true
func (h *Handler) AssignImages(c *gin.Context) {
	opts, ok := h.runOptions(c)
	if !ok {
		return
	}

	summary, err := h.images.AssignImages(runContext(c), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RepairImages handles POST /api/v1/images/repair?dry_run=true
func (h *Handler) RepairImages(c *gin.Context) {
	opts, ok := h.runOptions(c)
	if !ok {
		return
	}

	report, err := h.images.RepairImages(runContext(c), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AuditImages handles GET /api/v1/images/audit?probe=true
func (h *Handler) AuditImages(c *gin.Context) {
	probe, err := queryBool(c, "probe")
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := h.images.Audit(runContext(c), probe)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// runContext detaches a run from the client connection
func runContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Handler) runOptions(c *gin.Context) (usecase.RunOptions, bool) {
	dryRun, err := queryBool(c, "dry_run")
	if err != nil {
		h.respondError(c, err)
		return usecase.RunOptions{}, false
	}
	return usecase.RunOptions{DryRun: dryRun}, true
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Join(domain.ErrInvalidRequest, errors.New(name+" must be a boolean"))
	}
	return v, nil
}

// respondError maps domain errors to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	msg := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code, msg = http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, domain.ErrRunInProgress):
		status, code, msg = http.StatusConflict, "run_in_progress", domain.ErrRunInProgress.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, code, msg = http.StatusServiceUnavailable, "store_unavailable", domain.ErrStoreUnavailable.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}
