// Package http provides the HTTP surface for the event ledger.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devtrack/eventledger/internal/domain"
	"github.com/devtrack/eventledger/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Event log API
	e.POST("/v1/events", h.LogEvent)
	e.GET("/v1/events", h.GetEvents)
	e.GET("/v1/events/search", h.SearchEvents)
	e.GET("/v1/events/statistics", h.GetStatistics)
	e.GET("/v1/events/export", h.ExportData)
	e.POST("/v1/events/cleanup", h.RunRetentionCleanup)
	e.GET("/v1/events/:event_id", h.GetEvent)

	// Replay API
	e.POST("/v1/replay/sessions", h.CreateSession)
	e.GET("/v1/replay/sessions", h.GetSessions)
	e.GET("/v1/replay/sessions/:session_id", h.GetSession)
	e.GET("/v1/replay/sessions/:session_id/results", h.GetReplayResults)
	e.POST("/v1/replay/sessions/:session_id/start", h.StartReplay)
	e.POST("/v1/replay/sessions/:session_id/pause", h.PauseReplay)
	e.POST("/v1/replay/sessions/:session_id/cancel", h.CancelReplay)
	e.GET("/v1/replay/sessions/:session_id/progress", h.GetReplayProgress)
	e.POST("/v1/replay/sessions/:session_id/validate", h.ValidateReplay)
	e.POST("/v1/replay/sessions/:session_id/rollback-points", h.CreateRollbackPoint)
	e.GET("/v1/replay/sessions/:session_id/rollback-points", h.GetRollbackPoints)
	e.POST("/v1/replay/sessions/:session_id/rollback", h.RollbackToPoint)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse maps service errors to status codes with a JSON envelope.
func errorResponse(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrRollbackPointNotFound),
		errors.Is(err, domain.ErrEventNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidFilter):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoProgress),
		errors.Is(err, domain.ErrSessionNotPending):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}
