package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

type stubNotificationService struct {
	processed []*domain.Notification
	recent    []domain.Notification
	err       error
}

func (s *stubNotificationService) Process(_ context.Context, n *domain.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.processed = append(s.processed, n)
	return nil
}

func (s *stubNotificationService) Recent(context.Context, int64) ([]domain.Notification, error) {
	return s.recent, nil
}

type stubBroadcaster struct {
	messages []any
}

func (b *stubBroadcaster) Broadcast(v any) {
	b.messages = append(b.messages, v)
}

func TestNotificationHandler_Recent(t *testing.T) {
	svc := &stubNotificationService{recent: []domain.Notification{
		{ID: "n1", Kind: domain.NotifJobStarted, Message: "obra 12"},
	}}
	h := NewNotificationHandler(svc, &stubBroadcaster{})

	c, rec := newTestContext(t, http.MethodGet, "/notifications", "")
	if err := h.Recent(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string][]domain.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp["notifications"]) != 1 || resp["notifications"][0].ID != "n1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestNotificationHandler_Recent_BadLimit(t *testing.T) {
	h := NewNotificationHandler(&stubNotificationService{}, &stubBroadcaster{})

	c, _ := newTestContext(t, http.MethodGet, "/notifications?limit=zero", "")
	err := h.Recent(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %v", err)
	}
}

func TestNotificationHandler_Publish(t *testing.T) {
	svc := &stubNotificationService{}
	hub := &stubBroadcaster{}
	h := NewNotificationHandler(svc, hub)

	c, rec := newTestContext(t, http.MethodPost, "/notifications",
		`{"kind":"permiso_aprobado","message":"permiso 7 aprobado"}`)

	if err := h.Publish(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(svc.processed) != 1 || svc.processed[0].Kind != domain.NotifPermitApproved {
		t.Fatalf("notification not processed: %+v", svc.processed)
	}
	if len(hub.messages) != 1 {
		t.Fatalf("notification not broadcast: %+v", hub.messages)
	}
}

func TestNotificationHandler_Publish_UnknownKind(t *testing.T) {
	svc := &stubNotificationService{}
	h := NewNotificationHandler(svc, &stubBroadcaster{})

	c, _ := newTestContext(t, http.MethodPost, "/notifications",
		`{"kind":"algo_raro","message":"?"}`)

	err := h.Publish(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %v", err)
	}
	if len(svc.processed) != 0 {
		t.Fatalf("unknown kind must not be processed")
	}
}

type stubPresenceSource struct {
	users []domain.ConnectedUser
	count int
}

func (s *stubPresenceSource) Presence() []domain.ConnectedUser { return s.users }
func (s *stubPresenceSource) Count() int                       { return s.count }

func TestPresenceHandler_List(t *testing.T) {
	h := NewPresenceHandler(&stubPresenceSource{
		users: []domain.ConnectedUser{{ID: 1, Nombre: "Ana", Rol: "admin"}},
		count: 2,
	})

	c, rec := newTestContext(t, http.MethodGet, "/presence", "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Users       []domain.ConnectedUser `json:"users"`
		Connections int                    `json:"connections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Users) != 1 || resp.Connections != 2 {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}
