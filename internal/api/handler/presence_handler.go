package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// PresenceSource is anything that can report who is currently online.
type PresenceSource interface {
	Presence() []domain.ConnectedUser
	Count() int
}

// PresenceHandler serves the REST view of the live roster.
type PresenceHandler struct {
	source PresenceSource
}

func NewPresenceHandler(source PresenceSource) *PresenceHandler {
	return &PresenceHandler{source: source}
}

type presenceResponse struct {
	Users       []domain.ConnectedUser `json:"users"`
	Connections int                    `json:"connections"`
}

// List returns the deduplicated set of connected users.
func (h *PresenceHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, presenceResponse{
		Users:       h.source.Presence(),
		Connections: h.source.Count(),
	})
}
