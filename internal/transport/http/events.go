package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devtrack/eventledger/internal/domain"
	store "github.com/devtrack/eventledger/internal/repository"
	"github.com/devtrack/eventledger/internal/service"
)

type logEventRequest struct {
	Type      domain.EventType `json:"type"`
	Severity  domain.Severity  `json:"severity"`
	Source    string           `json:"source"`
	Message   string           `json:"message"`
	Payload   json.RawMessage  `json:"payload"`
	ProjectID string           `json:"project_id"`
	ChangeID  string           `json:"change_id"`
}

// LogEvent appends one event to the ledger.
// POST /v1/events
func (h *Handler) LogEvent(c echo.Context) error {
	var req logEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	event, err := h.service.LogEvent(c.Request().Context(), service.LogEventInput{
		Type:      req.Type,
		Severity:  req.Severity,
		Source:    req.Source,
		Message:   req.Message,
		Payload:   req.Payload,
		ProjectID: req.ProjectID,
		ChangeID:  req.ChangeID,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

// GetEvent retrieves a single event by id.
// GET /v1/events/:event_id
func (h *Handler) GetEvent(c echo.Context) error {
	event, err := h.service.GetEvent(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// GetEvents retrieves events matching the query filter.
// GET /v1/events
func (h *Handler) GetEvents(c echo.Context) error {
	filter, err := parseEventFilter(c)
	if err != nil {
		return errorResponse(c, err)
	}
	events, err := h.service.GetEvents(c.Request().Context(), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// SearchEvents retrieves events matching a substring query plus the filter.
// GET /v1/events/search?q=...
func (h *Handler) SearchEvents(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
	}
	filter, err := parseEventFilter(c)
	if err != nil {
		return errorResponse(c, err)
	}
	events, err := h.service.SearchEvents(c.Request().Context(), query, filter)
	if err != nil {
		return errorResponse(c, err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// GetStatistics aggregates counts for the filter.
// GET /v1/events/statistics
func (h *Handler) GetStatistics(c echo.Context) error {
	filter, err := parseEventFilter(c)
	if err != nil {
		return errorResponse(c, err)
	}
	stats, err := h.service.GetStatistics(c.Request().Context(), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ExportData serializes matching events as json, csv, or sql.
// GET /v1/events/export?format=json
func (h *Handler) ExportData(c echo.Context) error {
	format := store.ExportFormat(c.QueryParam("format"))
	if format == "" {
		format = store.ExportJSON
	}
	filter, err := parseEventFilter(c)
	if err != nil {
		return errorResponse(c, err)
	}
	blob, err := h.service.ExportData(c.Request().Context(), filter, format)
	if err != nil {
		return errorResponse(c, err)
	}
	contentType := echo.MIMEApplicationJSON
	switch format {
	case store.ExportCSV:
		contentType = "text/csv"
	case store.ExportSQL:
		contentType = "application/sql"
	}
	return c.Blob(http.StatusOK, contentType, blob)
}

// RunRetentionCleanup applies the retention policy on demand.
// POST /v1/events/cleanup
func (h *Handler) RunRetentionCleanup(c echo.Context) error {
	deleted, err := h.service.RunRetentionCleanup(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}

// parseEventFilter builds an EventFilter from query parameters.
func parseEventFilter(c echo.Context) (domain.EventFilter, error) {
	var filter domain.EventFilter

	if types := c.QueryParam("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, domain.EventType(strings.TrimSpace(t)))
		}
	}
	if sevs := c.QueryParam("severities"); sevs != "" {
		for _, s := range strings.Split(sevs, ",") {
			filter.Severities = append(filter.Severities, domain.Severity(strings.TrimSpace(s)))
		}
	}
	filter.MinSeverity = domain.Severity(c.QueryParam("min_severity"))
	filter.Source = c.QueryParam("source")
	filter.ProjectID = c.QueryParam("project_id")
	filter.ChangeID = c.QueryParam("change_id")
	filter.SortBy = c.QueryParam("sort_by")
	filter.SortOrder = domain.SortOrder(c.QueryParam("sort_order"))

	var err error
	if filter.Since, err = parseTimeParam(c, "since"); err != nil {
		return filter, err
	}
	if filter.Until, err = parseTimeParam(c, "until"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseIntParam(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseIntParam(c, "offset"); err != nil {
		return filter, err
	}

	return filter, filter.Validate()
}

func parseTimeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.ErrInvalidFilter
	}
	return &t, nil
}

func parseIntParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidFilter
	}
	return n, nil
}
