// Package realtime implements the CMO realtime presence and notification
// client: a connection manager that keeps one authenticated WebSocket to the
// backend and recovers from failures with capped exponential backoff, an
// event router that normalizes inbound frames and maintains the presence
// set, and a subscriber fan-out that delivers typed events to any number of
// independent consumers.
package realtime

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
)

const defaultDedupWindow = 5 * time.Second

// Config bundles the knobs for a Client. The historical client variants in
// the dashboard disagreed on dedup windows and backoff caps; here they are
// configuration, not separate implementations.
type Config struct {
	URL string

	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	DialTimeout          time.Duration
	WriteTimeout         time.Duration

	// DedupWindow suppresses repeat user-connected notifications for the
	// same user inside this interval.
	DedupWindow time.Duration
}

// Client ties the connection manager, event router, and fan-out together
// behind one owned, injectable instance with an explicit lifecycle.
type Client struct {
	mgr      *Manager
	router   *Router
	fanout   *Fanout
	presence *PresenceSet
	log      zerolog.Logger
}

// New builds a Client and starts its routing loop. The client stays
// disconnected until Connect is called; Close tears everything down.
func New(cfg Config, tokens ports.TokenSource, log zerolog.Logger) *Client {
	window := cfg.DedupWindow
	if window <= 0 {
		window = defaultDedupWindow
	}

	presence := NewPresenceSet()
	fanout := NewFanout(log)
	router := NewRouter(presence, NewDedupWindow(window), fanout, log)
	mgr := NewManager(ManagerConfig{
		URL:                  cfg.URL,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.ReconnectMaxDelay,
		DialTimeout:          cfg.DialTimeout,
		WriteTimeout:         cfg.WriteTimeout,
	}, tokens, log)

	c := &Client{
		mgr:      mgr,
		router:   router,
		fanout:   fanout,
		presence: presence,
		log:      log.With().Str("component", "realtime").Logger(),
	}
	go c.run()
	return c
}

// run is the single routing goroutine: frames are processed strictly in
// arrival order so a disconnect can never overtake the connect it follows.
func (c *Client) run() {
	frames := c.mgr.Frames()
	for {
		select {
		case <-c.mgr.Done():
			return
		case raw := <-frames:
			c.router.Route(raw)
		}
	}
}

// Connect establishes the realtime connection. A missing credential makes
// this a logged no-op; an expired one is surfaced to subscribers as a failed
// auth result without attempting to dial.
func (c *Client) Connect() {
	if err := c.mgr.Connect(); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			c.log.Warn().Msg("session token expired, not connecting")
			c.fanout.Dispatch(domain.InboundEvent{
				Kind:    domain.KindAuthResult,
				AuthOK:  false,
				Message: "session token expired",
			})
			return
		}
		c.log.Error().Err(err).Msg("connect failed")
	}
}

// Disconnect intentionally closes the connection and cancels any pending
// reconnect. The client can be reconnected later with Connect.
func (c *Client) Disconnect() {
	c.mgr.Disconnect()
}

// Close shuts the client down for good.
func (c *Client) Close() {
	c.mgr.Shutdown()
}

// Send transmits an outbound domain message, fire-and-forget. Dropped with a
// warning when disconnected.
func (c *Client) Send(v any) {
	c.mgr.Send(v)
}

// Subscribe registers fn for events of the given kind.
func (c *Client) Subscribe(kind domain.EventKind, fn Handler) Subscription {
	return c.fanout.Subscribe(kind, fn)
}

// Unsubscribe removes a registration obtained from Subscribe.
func (c *Client) Unsubscribe(sub Subscription) {
	c.fanout.Unsubscribe(sub)
}

// Presence returns a copy of the current presence set, deduplicated by ID.
func (c *Client) Presence() []domain.ConnectedUser {
	return c.presence.Snapshot()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.mgr.State()
}

// OnStateChange registers a listener for connection state transitions.
func (c *Client) OnStateChange(fn StateListener) {
	c.mgr.OnStateChange(fn)
}
