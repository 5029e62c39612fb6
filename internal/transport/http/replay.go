package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devtrack/eventledger/internal/domain"
	store "github.com/devtrack/eventledger/internal/repository"
)

type createSessionRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Filter      domain.EventFilter   `json:"filter"`
	Options     domain.ReplayOptions `json:"options"`
}

// CreateSession creates a new replay session in PENDING state.
// POST /v1/replay/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.Name, req.Filter, req.Options, req.Description)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a session by id.
// GET /v1/replay/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// GetSessions lists sessions, optionally filtered by status.
// GET /v1/replay/sessions?status=PENDING
func (h *Handler) GetSessions(c echo.Context) error {
	query := store.SessionQuery{
		Status: domain.SessionStatus(c.QueryParam("status")),
	}
	var err error
	if query.Limit, err = parseIntParam(c, "limit"); err != nil {
		return errorResponse(c, err)
	}
	if query.Offset, err = parseIntParam(c, "offset"); err != nil {
		return errorResponse(c, err)
	}

	sessions, err := h.service.GetSessions(c.Request().Context(), query)
	if err != nil {
		return errorResponse(c, err)
	}
	if sessions == nil {
		sessions = []domain.ReplaySession{}
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions})
}

// StartReplay starts execution of a PENDING session and returns at once.
// POST /v1/replay/sessions/:session_id/start
func (h *Handler) StartReplay(c echo.Context) error {
	sessionID := c.Param("session_id")
	if err := h.service.StartReplay(c.Request().Context(), sessionID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"session_id": sessionID,
		"status":     string(domain.SessionStatusRunning),
	})
}

// PauseReplay pauses a RUNNING session; a no-op otherwise.
// POST /v1/replay/sessions/:session_id/pause
func (h *Handler) PauseReplay(c echo.Context) error {
	sessionID := c.Param("session_id")
	if err := h.service.PauseReplay(c.Request().Context(), sessionID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": sessionID})
}

// CancelReplay cancels a PENDING or RUNNING session.
// POST /v1/replay/sessions/:session_id/cancel
func (h *Handler) CancelReplay(c echo.Context) error {
	sessionID := c.Param("session_id")
	if err := h.service.CancelReplay(c.Request().Context(), sessionID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     string(domain.SessionStatusCancelled),
	})
}

// GetReplayProgress reports execution progress for a started session.
// GET /v1/replay/sessions/:session_id/progress
func (h *Handler) GetReplayProgress(c echo.Context) error {
	progress, err := h.service.GetReplayProgress(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, progress)
}

// GetReplayResults lists per-event results for a session.
// GET /v1/replay/sessions/:session_id/results
func (h *Handler) GetReplayResults(c echo.Context) error {
	results, err := h.service.GetReplayResults(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if results == nil {
		results = []domain.ReplayResult{}
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

// ValidateReplay runs the static pre-flight checks for a session.
// POST /v1/replay/sessions/:session_id/validate
func (h *Handler) ValidateReplay(c echo.Context) error {
	report, err := h.service.ValidateReplay(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

type createRollbackPointRequest struct {
	Description string `json:"description"`
}

// CreateRollbackPoint captures a restorable marker for a session.
// POST /v1/replay/sessions/:session_id/rollback-points
func (h *Handler) CreateRollbackPoint(c echo.Context) error {
	var req createRollbackPointRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	point, err := h.service.CreateRollbackPoint(c.Request().Context(), c.Param("session_id"), req.Description)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, point)
}

// GetRollbackPoints lists a session's rollback points.
// GET /v1/replay/sessions/:session_id/rollback-points
func (h *Handler) GetRollbackPoints(c echo.Context) error {
	points, err := h.service.GetRollbackPoints(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if points == nil {
		points = []domain.RollbackPoint{}
	}
	return c.JSON(http.StatusOK, map[string]any{"rollback_points": points})
}

type rollbackRequest struct {
	RollbackPointID string `json:"rollback_point_id"`
}

// RollbackToPoint restores state to a previously captured marker.
// POST /v1/replay/sessions/:session_id/rollback
func (h *Handler) RollbackToPoint(c echo.Context) error {
	var req rollbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.RollbackPointID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "rollback_point_id is required"})
	}
	if err := h.service.RollbackToPoint(c.Request().Context(), c.Param("session_id"), req.RollbackPointID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"session_id":        c.Param("session_id"),
		"rollback_point_id": req.RollbackPointID,
	})
}
