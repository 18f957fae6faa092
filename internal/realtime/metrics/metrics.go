// Package metrics defines and registers all custom Prometheus metrics for
// the realtime client core. It is the single source of truth for metric
// names, labels, and help strings; all metrics register with the default
// registry at package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cmo_realtime"

// ConnectionUp is 1 while the transport is open and 0 otherwise.
var ConnectionUp = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_up",
		Help:      "Whether the realtime transport is currently connected (1) or not (0).",
	},
)

// ReconnectAttemptsTotal counts reconnect attempts scheduled after an
// unexpected close, regardless of outcome.
var ReconnectAttemptsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnect_attempts_total",
		Help:      "Total number of reconnect attempts scheduled by the connection manager.",
	},
)

// FramesRoutedTotal counts inbound frames by the event kind they resolved to.
// Label:
//   - kind: roster_snapshot, user_connected, user_disconnected, auth_result,
//     domain_notification, unrecognized
var FramesRoutedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_routed_total",
		Help:      "Total number of inbound frames classified by the event router.",
	},
	[]string{"kind"},
)

// NotificationsSuppressedTotal counts user-connected notifications dropped by
// the dedup window.
var NotificationsSuppressedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_suppressed_total",
		Help:      "Total number of user-connected notifications suppressed as duplicates.",
	},
)

// FanoutDeliveriesTotal counts individual callback deliveries by event kind.
var FanoutDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fanout_deliveries_total",
		Help:      "Total number of event deliveries to registered subscribers.",
	},
	[]string{"kind"},
)

// SubscriberPanicsTotal counts subscriber callbacks that panicked during
// dispatch. Each panic is isolated; delivery to other subscribers continues.
var SubscriberPanicsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscriber_panics_total",
		Help:      "Total number of subscriber callbacks that panicked during dispatch.",
	},
)

// SendsDroppedTotal counts outbound messages dropped because the transport
// was not open at the time of the call.
var SendsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sends_dropped_total",
		Help:      "Total number of outbound messages dropped while disconnected.",
	},
)
