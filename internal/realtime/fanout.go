package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/realtime/metrics"
)

// Handler receives one dispatched event. Handlers run synchronously on the
// routing goroutine and must not block.
type Handler func(domain.InboundEvent)

// Subscription identifies one registration and is the handle passed to
// Unsubscribe.
type Subscription struct {
	kind domain.EventKind
	id   uint64
}

type fanoutEntry struct {
	id uint64
	fn Handler
}

// Fanout delivers each qualifying event to every registered subscriber,
// synchronously and in registration order. Registering the same callback
// twice is allowed and results in two deliveries per event. A panicking
// subscriber never prevents delivery to the rest.
type Fanout struct {
	log zerolog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[domain.EventKind][]fanoutEntry
}

func NewFanout(log zerolog.Logger) *Fanout {
	return &Fanout{
		log:  log.With().Str("component", "fanout").Logger(),
		subs: make(map[domain.EventKind][]fanoutEntry),
	}
}

// Subscribe registers fn for every future event of the given kind and
// returns the handle needed to unsubscribe. Registration is pure
// accumulation; it never replaces an existing callback.
func (f *Fanout) Subscribe(kind domain.EventKind, fn Handler) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.subs[kind] = append(f.subs[kind], fanoutEntry{id: f.nextID, fn: fn})
	return Subscription{kind: kind, id: f.nextID}
}

// Unsubscribe removes the registration identified by sub. Unknown handles
// are ignored.
func (f *Fanout) Unsubscribe(sub Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.subs[sub.kind]
	for i, e := range entries {
		if e.id == sub.id {
			f.subs[sub.kind] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Dispatch invokes every callback registered for ev's kind, in registration
// order. Each invocation is isolated: a panic is logged and counted, and
// delivery continues with the next subscriber.
func (f *Fanout) Dispatch(ev domain.InboundEvent) {
	f.mu.RLock()
	entries := make([]fanoutEntry, len(f.subs[ev.Kind]))
	copy(entries, f.subs[ev.Kind])
	f.mu.RUnlock()

	for _, e := range entries {
		f.invoke(e, ev)
		metrics.FanoutDeliveriesTotal.WithLabelValues(ev.Kind.String()).Inc()
	}
}

func (f *Fanout) invoke(e fanoutEntry, ev domain.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SubscriberPanicsTotal.Inc()
			f.log.Error().
				Interface("panic", r).
				Str("kind", ev.Kind.String()).
				Uint64("subscription", e.id).
				Msg("subscriber panicked during dispatch")
		}
	}()
	e.fn(ev)
}
