// Package ws implements the gateway side of the CMO realtime protocol: a
// WebSocket hub that authenticates each connection from its first frame,
// tracks who is online, and pushes roster snapshots, connect/disconnect
// deltas, and domain notifications to every client.
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the hub pings clients. Must be less
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 32

	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenVerifier checks the credential carried in a client's auth frame and
// returns the connected-user identity encoded in it.
type TokenVerifier interface {
	Verify(token string) (*domain.ConnectedUser, error)
}

// client represents one connected WebSocket client. user is nil until the
// auth frame has been verified.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	user *domain.ConnectedUser
}

func (c *client) identity() *domain.ConnectedUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *client) setIdentity(u *domain.ConnectedUser) {
	c.mu.Lock()
	c.user = u
	c.mu.Unlock()
}

// Hub manages all realtime client connections for the gateway.
type Hub struct {
	verifier TokenVerifier
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a Hub that authenticates clients with the given verifier.
func New(verifier TokenVerifier, log zerolog.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		log:      log.With().Str("component", "hub").Logger(),
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.drop(c)

	go c.writePump()
	h.readPump(c) // blocks until the connection closes
}

// Presence returns the authenticated users currently connected, deduplicated
// by user ID.
func (h *Hub) Presence() []domain.ConnectedUser {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rosterLocked()
}

// Count returns the number of open connections, authenticated or not.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends v to every authenticated client.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("broadcast marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.identity() == nil {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer; skip rather than stall the hub.
		}
	}
}

// Close tears down all connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// drop removes the client and, if it was the last connection for its user,
// announces the departure and a fresh roster.
func (h *Hub) drop(c *client) {
	user := c.identity()

	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	lastConn := user != nil && !h.userPresentLocked(user.ID)
	h.mu.Unlock()

	if lastConn {
		h.Broadcast(map[string]any{
			"event": "userDisconnected",
			"user":  map[string]int{"id": user.ID},
		})
		h.broadcastRoster()
		h.log.Info().Int("user_id", user.ID).Str("nombre", user.Nombre).Msg("user disconnected")
	}
}

// readPump drives one client: the first frame must be an auth frame; after
// that, inbound frames are treated as opaque domain messages and relayed to
// everyone else.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if c.identity() == nil {
			h.authenticate(c, data)
			continue
		}

		// Authenticated clients may push domain messages; relay verbatim.
		h.Broadcast(json.RawMessage(data))
	}
}

// authenticate processes the auth frame. A bad token answers with authError
// but deliberately leaves the connection open so the client can retry after
// re-login without redialing.
func (h *Hub) authenticate(c *client, data []byte) {
	var frame struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &frame); err != nil || frame.Token == "" {
		h.send(c, map[string]string{"event": "authError", "message": "se requiere un token"})
		return
	}

	user, err := h.verifier.Verify(frame.Token)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket auth rejected")
		h.send(c, map[string]string{"event": "authError", "message": "token inválido"})
		return
	}

	h.mu.Lock()
	firstConn := !h.userPresentLocked(user.ID)
	h.mu.Unlock()

	c.setIdentity(user)
	h.send(c, map[string]string{"event": "authenticated", "message": "autenticado como " + user.Nombre})

	if firstConn {
		h.Broadcast(map[string]any{
			"event":   "userConnected",
			"user":    user,
			"message": fmt.Sprintf("%s (%s) se ha conectado", user.Nombre, user.Rol),
		})
	}
	h.broadcastRoster()
	h.log.Info().Int("user_id", user.ID).Str("rol", user.Rol).Msg("user authenticated")
}

func (h *Hub) broadcastRoster() {
	h.mu.RLock()
	roster := h.rosterLocked()
	h.mu.RUnlock()

	h.Broadcast(map[string]any{
		"event": "connectedUsers",
		"users": roster,
	})
}

// rosterLocked builds the deduplicated roster. Callers hold h.mu.
func (h *Hub) rosterLocked() []domain.ConnectedUser {
	seen := make(map[int]struct{}, len(h.clients))
	roster := make([]domain.ConnectedUser, 0, len(h.clients))
	for c := range h.clients {
		u := c.identity()
		if u == nil {
			continue
		}
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		roster = append(roster, *u)
	}
	return roster
}

// userPresentLocked reports whether any other connection is authenticated as
// the given user ID. Callers hold h.mu.
func (h *Hub) userPresentLocked(id int) bool {
	for c := range h.clients {
		if u := c.identity(); u != nil && u.ID == id {
			return true
		}
	}
	return false
}

// send queues a single message to one client.
func (h *Hub) send(c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
