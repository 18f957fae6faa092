package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/realtime/metrics"
)

// wireFrame is the superset of fields the backend may put on a frame. Two
// discriminator conventions are in the wild: the current one keyed on
// "event" and the legacy one keyed on "type". Both must resolve to the same
// normalized variants.
type wireFrame struct {
	Event   string                 `json:"event"`
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	User    *domain.ConnectedUser  `json:"user"`
	Users   []domain.ConnectedUser `json:"users"`
	Data    json.RawMessage        `json:"data"`
}

// Router converts raw inbound frames into typed events, applies the presence
// merge rules, gates user-connected notifications through the dedup window,
// and hands the surviving events to the fan-out.
type Router struct {
	presence *PresenceSet
	dedup    *DedupWindow
	fanout   *Fanout
	log      zerolog.Logger
}

func NewRouter(presence *PresenceSet, dedup *DedupWindow, fanout *Fanout, log zerolog.Logger) *Router {
	return &Router{
		presence: presence,
		dedup:    dedup,
		fanout:   fanout,
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Route processes one raw frame end-to-end and returns the event it resolved
// to. A malformed frame resolves to KindUnrecognized and leaves the presence
// set untouched; it never terminates the caller's loop.
func (r *Router) Route(raw []byte) domain.InboundEvent {
	ev := Classify(raw)
	metrics.FramesRoutedTotal.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case domain.KindRosterSnapshot:
		r.presence.ReplaceAll(ev.Users)

	case domain.KindUserConnected:
		// The presence merge always happens; only the outward notification
		// is subject to the dedup window.
		r.presence.Add(*ev.User)
		if !r.dedup.Allow(ev.User.ID) {
			metrics.NotificationsSuppressedTotal.Inc()
			r.log.Debug().Int("user_id", ev.User.ID).Msg("duplicate user-connected notification suppressed")
			return ev
		}

	case domain.KindUserDisconnected:
		r.presence.Remove(ev.UserID)

	case domain.KindUnrecognized:
		r.log.Debug().Int("bytes", len(raw)).Msg("unrecognized frame dropped")
	}

	r.fanout.Dispatch(ev)
	return ev
}

// Snapshot exposes the current presence set, deduplicated by ID.
func (r *Router) Snapshot() []domain.ConnectedUser {
	return r.presence.Snapshot()
}

// Classify parses one frame into its InboundEvent variant. Parsing never
// fails outward: frames that are not JSON, carry no discriminator, or carry
// an unknown discriminator become KindUnrecognized.
func Classify(raw []byte) domain.InboundEvent {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
	}

	if f.Event != "" {
		return classifyEventScheme(f, raw)
	}
	if f.Type != "" {
		return classifyTypeScheme(f, raw)
	}
	return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
}

// classifyEventScheme handles the current convention, keyed on "event".
func classifyEventScheme(f wireFrame, raw []byte) domain.InboundEvent {
	switch f.Event {
	case "connectedUsers":
		return domain.InboundEvent{Kind: domain.KindRosterSnapshot, Users: f.Users}

	case "userConnected":
		if f.User == nil {
			return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
		}
		return domain.InboundEvent{Kind: domain.KindUserConnected, User: f.User, Message: f.Message}

	case "userDisconnected":
		if f.User == nil {
			return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
		}
		return domain.InboundEvent{Kind: domain.KindUserDisconnected, UserID: f.User.ID}

	case "authenticated":
		return domain.InboundEvent{Kind: domain.KindAuthResult, AuthOK: true, Message: f.Message}

	case "authError":
		return domain.InboundEvent{Kind: domain.KindAuthResult, AuthOK: false, Message: f.Message}

	case "permisoNotification":
		return domain.InboundEvent{
			Kind:             domain.KindDomainNotification,
			NotificationKind: f.Event,
			Message:          f.Message,
			Payload:          json.RawMessage(raw),
		}
	}

	if domain.KnownNotificationKind(f.Event) {
		return domain.InboundEvent{
			Kind:             domain.KindDomainNotification,
			NotificationKind: f.Event,
			Message:          f.Message,
			Payload:          json.RawMessage(raw),
		}
	}

	return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
}

// classifyTypeScheme handles the legacy convention, keyed on "type".
func classifyTypeScheme(f wireFrame, raw []byte) domain.InboundEvent {
	switch f.Type {
	case "users_list":
		var users []domain.ConnectedUser
		if err := json.Unmarshal(f.Data, &users); err != nil {
			return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
		}
		return domain.InboundEvent{Kind: domain.KindRosterSnapshot, Users: users}

	case "user_connected":
		var user domain.ConnectedUser
		if err := json.Unmarshal(f.Data, &user); err != nil {
			return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
		}
		return domain.InboundEvent{Kind: domain.KindUserConnected, User: &user, Message: f.Message}

	case "user_disconnected":
		var user domain.ConnectedUser
		if err := json.Unmarshal(f.Data, &user); err != nil {
			return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
		}
		return domain.InboundEvent{Kind: domain.KindUserDisconnected, UserID: user.ID}

	case "error":
		return domain.InboundEvent{Kind: domain.KindAuthResult, AuthOK: false, Message: f.Message}
	}

	if domain.KnownNotificationKind(f.Type) {
		return domain.InboundEvent{
			Kind:             domain.KindDomainNotification,
			NotificationKind: f.Type,
			Message:          f.Message,
			Payload:          json.RawMessage(raw),
		}
	}

	return domain.InboundEvent{Kind: domain.KindUnrecognized, Raw: raw}
}
