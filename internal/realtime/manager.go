package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
	"github.com/cmo-ops/realtime-system/internal/realtime/metrics"
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectBaseDelay   = time.Second
	defaultReconnectMaxDelay    = 30 * time.Second
	defaultDialTimeout          = 10 * time.Second
	defaultWriteTimeout         = 10 * time.Second
)

// ManagerConfig controls the connection lifecycle. Zero values fall back to
// the defaults the CMO dashboard always ran with.
type ManagerConfig struct {
	// URL is the ws:// or wss:// endpoint of the realtime backend.
	URL string

	// MaxReconnectAttempts bounds automatic recovery after an unexpected
	// close. Once exhausted the manager stays Disconnected until Connect is
	// called again.
	MaxReconnectAttempts int

	// ReconnectBaseDelay is the delay before the first reconnect attempt;
	// each subsequent attempt doubles it up to ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = defaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = defaultReconnectMaxDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// BackoffDelay returns the wait before reconnect attempt k (1-based):
// min(base * 2^(k-1), max).
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// authFrame is the first message sent after transport-open.
type authFrame struct {
	Token string `json:"token"`
}

// Manager owns exactly one realtime transport: it connects, authenticates
// with the session credential, detects failure, and recovers with capped
// exponential backoff. Raw inbound frames are exposed on Frames in strict
// arrival order; the Manager never interprets them.
type Manager struct {
	cfg    ManagerConfig
	tokens ports.TokenSource
	log    zerolog.Logger

	out  chan []byte
	done chan struct{}

	mu             sync.Mutex
	state          ConnectionState
	tr             *transport
	attempts       int
	reconnectTimer *time.Timer
	closing        bool
	shutdown       bool

	listenerMu sync.Mutex
	listeners  []StateListener

	shutdownOnce sync.Once
}

// NewManager creates a Manager. It does not connect; call Connect.
func NewManager(cfg ManagerConfig, tokens ports.TokenSource, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg.withDefaults(),
		tokens: tokens,
		log:    log.With().Str("component", "connection").Logger(),
		out:    make(chan []byte, frameBuffer),
		done:   make(chan struct{}),
	}
}

// Frames returns the raw inbound frame stream, in arrival order. The stream
// spans reconnects; it only stops producing after Shutdown.
func (m *Manager) Frames() <-chan []byte {
	return m.out
}

// Done is closed when the manager has been shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers a listener invoked on every state transition, in
// registration order.
func (m *Manager) OnStateChange(fn StateListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Connect establishes the transport and authenticates it. Calling Connect
// while a connection is live or in flight is a no-op. When the session store
// holds no credential the call is also a no-op: the system is allowed to run
// unauthenticated-but-disconnected. An expired credential is reported so the
// caller can surface it; no dial is attempted.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return errors.New("manager is shut down")
	}
	if m.state != StateDisconnected {
		m.mu.Unlock()
		m.log.Debug().Msg("connect ignored: already connected or connecting")
		return nil
	}
	m.closing = false
	m.attempts = 0
	m.mu.Unlock()

	token, err := m.tokens.Token(context.Background())
	if err != nil {
		if errors.Is(err, domain.ErrNoToken) {
			m.log.Info().Msg("no session token available, staying disconnected")
			return nil
		}
		return err
	}

	m.transition(StateConnecting)
	go m.dial(token)
	return nil
}

// Disconnect closes the transport with the intentional-close code, cancels
// any pending reconnect, and resets the retry counter. No further reconnect
// attempts happen until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	m.attempts = 0
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	tr := m.tr
	m.tr = nil
	m.mu.Unlock()

	if tr != nil {
		tr.Close(websocket.CloseNormalClosure, "client disconnect")
	}
	m.transition(StateDisconnected)
}

// Shutdown disconnects and permanently stops the frame stream. The Manager
// cannot be reused afterwards.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		m.shutdown = true
		m.mu.Unlock()

		m.Disconnect()
		close(m.done)
	})
}

// Send marshals v as JSON and writes it to the open transport. When the
// transport is not open the message is dropped with a warning; there is no
// queueing and no error escalates to the caller.
func (m *Manager) Send(v any) {
	m.mu.Lock()
	tr := m.tr
	st := m.state
	m.mu.Unlock()

	if tr == nil || st != StateConnected {
		metrics.SendsDroppedTotal.Inc()
		m.log.Warn().Str("state", st.String()).Msg("send dropped: transport not open")
		return
	}
	if err := tr.SendJSON(v); err != nil {
		m.log.Warn().Err(err).Msg("send failed")
	}
}

func (m *Manager) dial(token string) {
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}
	conn, resp, err := dialer.Dial(m.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		m.log.Warn().Err(err).Str("url", m.cfg.URL).Msg("dial failed")
		m.transition(StateDisconnected)
		m.scheduleReconnect()
		return
	}

	tr := newTransport(conn, m.cfg.WriteTimeout, m.log)

	m.mu.Lock()
	if m.closing || m.shutdown {
		m.mu.Unlock()
		tr.Close(websocket.CloseNormalClosure, "client disconnect")
		return
	}
	m.tr = tr
	m.attempts = 0
	m.mu.Unlock()

	m.transition(StateConnected)
	m.log.Info().Str("url", m.cfg.URL).Msg("connected")

	// Authenticate immediately after transport-open. An auth rejection comes
	// back as a frame; the transport stays open either way.
	if err := tr.SendJSON(authFrame{Token: token}); err != nil {
		m.log.Warn().Err(err).Msg("failed to send auth frame")
	}

	go m.pump(tr)
}

// pump forwards frames from one transport incarnation to the shared output
// stream, then drives failure handling when the transport dies.
func (m *Manager) pump(tr *transport) {
	for {
		select {
		case <-m.done:
			return
		case data, ok := <-tr.Frames():
			if !ok {
				m.handleClosed(tr.CloseErr())
				return
			}
			select {
			case m.out <- data:
			case <-m.done:
				return
			}
		}
	}
}

func (m *Manager) handleClosed(cause error) {
	m.mu.Lock()
	m.tr = nil
	closing := m.closing || m.shutdown
	m.mu.Unlock()

	m.transition(StateDisconnected)

	if closing || isIntentionalClose(cause) {
		m.log.Info().Msg("connection closed")
		return
	}

	m.log.Warn().Err(cause).Msg("connection lost")
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.closing || m.shutdown {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.mu.Unlock()
		// Deliberate policy: stay Disconnected silently until an external
		// trigger calls Connect again.
		m.log.Warn().
			Int("attempts", m.cfg.MaxReconnectAttempts).
			Msg("reconnect attempts exhausted, giving up")
		return
	}
	delay := BackoffDelay(m.attempts+1, m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay)
	m.attempts++
	attempt := m.attempts
	m.reconnectTimer = time.AfterFunc(delay, m.retry)
	m.mu.Unlock()

	metrics.ReconnectAttemptsTotal.Inc()
	m.transition(StateReconnecting)
	m.log.Info().
		Dur("delay", delay).
		Int("attempt", attempt).
		Int("max", m.cfg.MaxReconnectAttempts).
		Msg("reconnect scheduled")
}

func (m *Manager) retry() {
	m.mu.Lock()
	if m.closing || m.shutdown {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	m.mu.Unlock()

	// Re-validate the credential before every reconnect attempt: a token
	// that expired while offline must not be replayed.
	token, err := m.tokens.Token(context.Background())
	if err != nil {
		m.log.Warn().Err(err).Msg("reconnect abandoned: credential unavailable")
		m.transition(StateDisconnected)
		return
	}

	m.dial(token)
}

// transition moves to the new state and notifies listeners in registration
// order. Same-state transitions are swallowed.
func (m *Manager) transition(to ConnectionState) {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return
	}
	m.state = to
	m.mu.Unlock()

	if to == StateConnected {
		metrics.ConnectionUp.Set(1)
	} else {
		metrics.ConnectionUp.Set(0)
	}

	m.listenerMu.Lock()
	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
}

// isIntentionalClose reports whether the transport died from a normal-close
// frame (code 1000). Everything else, including dial errors and abnormal
// closure, counts as unexpected and triggers the backoff policy.
func isIntentionalClose(err error) bool {
	if err == nil {
		return true
	}
	var ce *websocket.CloseError
	return errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure
}
