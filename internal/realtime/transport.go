package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// maxFrameSize caps a single inbound message to protect against memory
	// exhaustion from a misbehaving backend.
	maxFrameSize = 512 * 1024

	frameBuffer = 64
)

// transport wraps a single gorilla/websocket connection with one reader
// goroutine. Frames are delivered in arrival order on the Frames channel;
// when the connection dies the channel is closed and CloseErr reports why.
type transport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	log          zerolog.Logger

	writeMu sync.Mutex

	frames chan []byte

	closeOnce sync.Once
	errMu     sync.Mutex
	closeErr  error
}

func newTransport(conn *websocket.Conn, writeTimeout time.Duration, log zerolog.Logger) *transport {
	t := &transport{
		conn:         conn,
		writeTimeout: writeTimeout,
		log:          log,
		frames:       make(chan []byte, frameBuffer),
	}
	go t.readLoop()
	return t
}

// Frames returns the inbound frame stream. The channel is closed when the
// connection terminates for any reason.
func (t *transport) Frames() <-chan []byte {
	return t.frames
}

// SendJSON marshals v and writes it as a single text frame.
func (t *transport) SendJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteJSON(v)
}

// Close sends a close frame with the given code and tears the connection
// down. Safe to call more than once.
func (t *transport) Close(code int, reason string) {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		t.writeMu.Lock()
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		_ = t.conn.WriteMessage(websocket.CloseMessage, msg)
		t.writeMu.Unlock()
		_ = t.conn.Close()
	})
}

// CloseErr returns the error that terminated the read loop. Only meaningful
// after Frames has been closed.
func (t *transport) CloseErr() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.closeErr
}

func (t *transport) readLoop() {
	defer close(t.frames)

	t.conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.errMu.Lock()
			t.closeErr = err
			t.errMu.Unlock()
			_ = t.conn.Close()
			return
		}
		if len(data) == 0 {
			continue
		}
		t.frames <- data
	}
}
