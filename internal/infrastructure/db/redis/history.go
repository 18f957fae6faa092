package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

const (
	historyKey = "notifications:recent"

	// historyCap bounds the recent list; entries beyond it fall off.
	historyCap = 50
)

// NotificationHistory keeps the bounded most-recent-notifications list that
// backs the dashboard dropdown, newest first.
type NotificationHistory struct {
	client *redis.Client
}

func NewNotificationHistory(client *redis.Client) *NotificationHistory {
	return &NotificationHistory{client: client}
}

// Push prepends a notification and trims the list to its cap.
func (h *NotificationHistory) Push(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("history push: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, historyCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history push: %w", err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first.
func (h *NotificationHistory) Recent(ctx context.Context, limit int64) ([]domain.Notification, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}

	raw, err := h.client.LRange(ctx, historyKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}

	out := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			// Skip corrupt entries rather than failing the whole read.
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
