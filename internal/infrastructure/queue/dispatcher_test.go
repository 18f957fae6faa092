package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

type recordingService struct {
	mu        sync.Mutex
	processed []*domain.Notification
	done      chan struct{}
}

func newRecordingService(expect int) *recordingService {
	return &recordingService{done: make(chan struct{}, expect)}
}

func (s *recordingService) Process(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	s.processed = append(s.processed, n)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *recordingService) Recent(context.Context, int64) ([]domain.Notification, error) {
	return nil, nil
}

func TestDispatcher_ProcessesEnqueuedNotifications(t *testing.T) {
	svc := newRecordingService(2)
	d := NewDispatcher(2, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Enqueue(domain.NewNotification(domain.NotifJobStarted, "obra 12", nil))
	d.Enqueue(domain.NewNotification(domain.NotifPermitRequested, "permiso 7", nil))

	for i := 0; i < 2; i++ {
		select {
		case <-svc.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("notification %d never processed", i)
		}
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.processed) != 2 {
		t.Fatalf("expected 2 processed notifications, got %d", len(svc.processed))
	}
}

func TestDispatcher_ShardIsDeterministicPerKind(t *testing.T) {
	d := NewDispatcher(4, newRecordingService(0), zerolog.Nop())

	first := d.shardIndex(domain.NotifJobStarted)
	for i := 0; i < 10; i++ {
		if got := d.shardIndex(domain.NotifJobStarted); got != first {
			t.Fatalf("shard index changed between calls: %d vs %d", first, got)
		}
	}
}

func TestDispatcher_DefaultWorkerCount(t *testing.T) {
	d := NewDispatcher(0, newRecordingService(0), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers by default, got %d", defaultWorkers, len(d.workers))
	}
}
