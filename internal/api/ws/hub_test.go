package ws

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// stubVerifier resolves fixed tokens to fixed identities.
type stubVerifier struct {
	users map[string]*domain.ConnectedUser
}

func (v *stubVerifier) Verify(token string) (*domain.ConnectedUser, error) {
	if u, ok := v.users[token]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, errors.New("unknown token")
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := New(&stubVerifier{users: map[string]*domain.ConnectedUser{
		"tok-ana":  {ID: 1, Nombre: "Ana", Rol: domain.RoleAdmin},
		"tok-luis": {ID: 2, Nombre: "Luis", Rol: domain.RoleTechnician},
	}}, zerolog.Nop())

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return hub, srv
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// awaitEvent reads frames until one with the given event discriminator
// arrives, returning its decoded body.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame["event"] == event {
			return frame
		}
	}
}

// awaitUserEvent reads frames until one with the given event discriminator
// and user id arrives.
func awaitUserEvent(t *testing.T, conn *websocket.Conn, event string, id int) {
	t.Helper()
	for {
		frame := awaitEvent(t, conn, event)
		if user, ok := frame["user"].(map[string]any); ok {
			if got, ok := user["id"].(float64); ok && int(got) == id {
				return
			}
		}
	}
}

func sendAuth(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"token": token}); err != nil {
		t.Fatalf("send auth frame: %v", err)
	}
}

func TestHub_AuthenticateAndRoster(t *testing.T) {
	hub, srv := newTestHub(t)

	ana := dialHub(t, srv)
	sendAuth(t, ana, "tok-ana")

	awaitEvent(t, ana, "authenticated")
	roster := awaitEvent(t, ana, "connectedUsers")
	users, _ := roster["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("expected 1 user in roster, got %v", roster["users"])
	}

	if got := hub.Presence(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected hub presence: %+v", got)
	}
	if hub.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.Count())
	}
}

func TestHub_BroadcastsConnectAndDisconnect(t *testing.T) {
	hub, srv := newTestHub(t)

	ana := dialHub(t, srv)
	sendAuth(t, ana, "tok-ana")
	awaitEvent(t, ana, "authenticated")

	luis := dialHub(t, srv)
	sendAuth(t, luis, "tok-luis")
	awaitEvent(t, luis, "authenticated")

	// Ana sees Luis arrive. Her own userConnected echo may come first.
	awaitUserEvent(t, ana, "userConnected", 2)

	if got := hub.Presence(); len(got) != 2 {
		t.Fatalf("expected 2 users present, got %+v", got)
	}

	_ = luis.Close()

	awaitUserEvent(t, ana, "userDisconnected", 2)
}

func TestHub_SecondConnectionSameUserIsQuiet(t *testing.T) {
	hub, srv := newTestHub(t)

	ana := dialHub(t, srv)
	sendAuth(t, ana, "tok-ana")
	awaitEvent(t, ana, "authenticated")

	// The same account opens a second tab.
	ana2 := dialHub(t, srv)
	sendAuth(t, ana2, "tok-ana")
	awaitEvent(t, ana2, "authenticated")

	// Roster stays deduplicated by user id.
	roster := awaitEvent(t, ana2, "connectedUsers")
	users, _ := roster["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("roster must dedup by user id, got %v", roster["users"])
	}
	if hub.Count() != 2 {
		t.Fatalf("expected 2 raw connections, got %d", hub.Count())
	}
	if got := hub.Presence(); len(got) != 1 {
		t.Fatalf("expected 1 distinct user, got %+v", got)
	}

	// Closing one tab must not announce a disconnect while the other stays.
	_ = ana2.Close()
	time.Sleep(100 * time.Millisecond)
	if got := hub.Presence(); len(got) != 1 {
		t.Fatalf("user must remain present while a connection lives, got %+v", got)
	}
}

func TestHub_BadTokenLeavesConnectionOpen(t *testing.T) {
	_, srv := newTestHub(t)

	conn := dialHub(t, srv)
	sendAuth(t, conn, "tok-wrong")
	awaitEvent(t, conn, "authError")

	// The connection survives a failed auth; a retry with a good token works.
	sendAuth(t, conn, "tok-ana")
	awaitEvent(t, conn, "authenticated")
}

func TestHub_BroadcastReachesOnlyAuthenticated(t *testing.T) {
	hub, srv := newTestHub(t)

	ana := dialHub(t, srv)
	sendAuth(t, ana, "tok-ana")
	awaitEvent(t, ana, "authenticated")

	hub.Broadcast(map[string]string{"event": "trabajo_iniciado", "message": "obra 12"})

	frame := awaitEvent(t, ana, "trabajo_iniciado")
	if frame["message"] != "obra 12" {
		t.Fatalf("unexpected broadcast payload: %v", frame)
	}
}
