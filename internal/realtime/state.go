package realtime

// ConnectionState describes the lifecycle of the realtime transport. It is
// owned exclusively by the Manager; consumers observe transitions through
// OnStateChange and must never infer state from anything else.
type ConnectionState int

const (
	// StateDisconnected means no transport is open and no reconnect is pending.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the initial dial is in flight.
	StateConnecting

	// StateConnected means the transport is open and authenticated frames flow.
	StateConnected

	// StateReconnecting means an unexpected close occurred and a backoff
	// timer is pending or a redial is in flight.
	StateReconnecting
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// StateListener receives every state transition, in order.
type StateListener func(old, new ConnectionState)
