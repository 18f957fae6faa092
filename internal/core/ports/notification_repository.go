package ports

import (
	"context"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// NotificationArchive is the durable store for every domain notification
// received over the realtime channel.
type NotificationArchive interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByKind(ctx context.Context, kind string, limit int64) ([]domain.Notification, error)
}

// NotificationHistory is the bounded recent-notifications list backing the
// dashboard dropdown. Old entries fall off once the cap is reached.
type NotificationHistory interface {
	Push(ctx context.Context, n *domain.Notification) error
	Recent(ctx context.Context, limit int64) ([]domain.Notification, error)
}
