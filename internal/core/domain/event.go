package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the variant carried by an InboundEvent. Every frame
// the backend emits resolves to exactly one kind; frames that cannot be
// parsed or carry an unknown discriminator resolve to KindUnrecognized.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindRosterSnapshot
	KindUserConnected
	KindUserDisconnected
	KindAuthResult
	KindDomainNotification
)

// String returns the string representation of an EventKind.
func (k EventKind) String() string {
	switch k {
	case KindRosterSnapshot:
		return "roster_snapshot"
	case KindUserConnected:
		return "user_connected"
	case KindUserDisconnected:
		return "user_disconnected"
	case KindAuthResult:
		return "auth_result"
	case KindDomainNotification:
		return "domain_notification"
	default:
		return "unrecognized"
	}
}

// InboundEvent is the normalized form of one frame received from the
// backend. Only the fields relevant to the Kind are populated:
//
//	KindRosterSnapshot     → Users
//	KindUserConnected      → User, Message
//	KindUserDisconnected   → UserID
//	KindAuthResult         → AuthOK, Message
//	KindDomainNotification → NotificationKind, Payload, Message
//	KindUnrecognized       → Raw
type InboundEvent struct {
	Kind EventKind

	Users  []ConnectedUser
	User   *ConnectedUser
	UserID int

	AuthOK  bool
	Message string

	NotificationKind string
	Payload          json.RawMessage

	Raw []byte
}

// Domain-notification kinds emitted by the CMO backend. These are wire
// values; the core passes them through without interpreting the payload.
const (
	NotifJobStarted      = "trabajo_iniciado"
	NotifJobApproved     = "trabajo_aprobado"
	NotifJobRejected     = "trabajo_rechazado"
	NotifPermitRequested = "permiso_solicitado"
	NotifPermitApproved  = "permiso_aprobado"
	NotifPermitRejected  = "permiso_rechazado"
)

// KnownNotificationKind reports whether kind is a notification type the
// backend is documented to emit.
func KnownNotificationKind(kind string) bool {
	switch kind {
	case NotifJobStarted, NotifJobApproved, NotifJobRejected,
		NotifPermitRequested, NotifPermitApproved, NotifPermitRejected:
		return true
	}
	return false
}

// Notification is a persisted record of a domain notification, as shown in
// the dashboard's notification history.
type Notification struct {
	ID         string          `json:"id"          validate:"required"`
	Kind       string          `json:"kind"        validate:"required"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"received_at" validate:"required"`
}

// NewNotification builds a Notification record from a received domain event.
func NewNotification(kind, message string, payload json.RawMessage) *Notification {
	return &Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		Message:    message,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
}
