package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher moves notification persistence off the routing goroutine: the
// fan-out callback only enqueues, and a fixed set of workers does the store
// writes. Sharding by notification kind keeps the archive ordered per kind.
type Dispatcher struct {
	workers []chan *domain.Notification
	service ports.NotificationService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.NotificationService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan *domain.Notification, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan *domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a notification to the worker responsible for its kind.
// Non-blocking up to channelBuffer capacity; beyond that the notification is
// dropped with a warning rather than stalling the event router.
func (d *Dispatcher) Enqueue(n *domain.Notification) {
	ch := d.workers[d.shardIndex(n.Kind)]
	select {
	case ch <- n:
	default:
		d.log.Warn().Str("kind", n.Kind).Msg("notification queue full, dropping")
	}
}

// shardIndex maps a notification kind deterministically to a worker index.
func (d *Dispatcher) shardIndex(kind string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(kind))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan *domain.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := d.service.Process(ctx, n); err != nil {
				d.log.Error().Err(err).
					Str("kind", n.Kind).
					Int("worker_id", id).
					Msg("notification processing failed")
			}
		}
	}
}
