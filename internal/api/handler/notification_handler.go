package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
)

const defaultHistoryLimit = 20

// Broadcaster pushes a message to every authenticated realtime client.
type Broadcaster interface {
	Broadcast(v any)
}

// NotificationHandler serves the notification history and lets privileged
// roles publish domain notifications to connected clients.
type NotificationHandler struct {
	service ports.NotificationService
	hub     Broadcaster
}

func NewNotificationHandler(service ports.NotificationService, hub Broadcaster) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub}
}

type publishRequest struct {
	Kind    string          `json:"kind"    validate:"required"`
	Message string          `json:"message" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Recent returns the latest notifications, newest first.
func (h *NotificationHandler) Recent(c echo.Context) error {
	limit := int64(defaultHistoryLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	items, err := h.service.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"notifications": items})
}

// Publish broadcasts a domain notification to every connected client and
// records it in the archive and recent history.
func (h *NotificationHandler) Publish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !domain.KnownNotificationKind(req.Kind) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown notification kind")
	}

	n := domain.NewNotification(req.Kind, req.Message, req.Payload)
	if err := h.service.Process(c.Request().Context(), n); err != nil {
		return err
	}

	h.hub.Broadcast(map[string]any{
		"event":   req.Kind,
		"message": req.Message,
		"data":    req.Payload,
	})

	return c.JSON(http.StatusAccepted, map[string]string{"id": n.ID})
}
