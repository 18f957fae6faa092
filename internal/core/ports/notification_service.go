package ports

import (
	"context"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// NotificationService persists domain notifications received from the
// realtime channel and serves the recent history.
type NotificationService interface {
	Process(ctx context.Context, n *domain.Notification) error
	Recent(ctx context.Context, limit int64) ([]domain.Notification, error)
}
