package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
)

const notificationCollection = "notifications"

// NotificationRepository implements ports.NotificationArchive using MongoDB.
type NotificationRepository struct {
	coll *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *mongo.Database) ports.NotificationArchive {
	return &NotificationRepository{coll: db.Collection(notificationCollection)}
}

// Insert persists one notification to the archive.
func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	doc := bson.M{
		"notification_id": n.ID,
		"kind":            n.Kind,
		"message":         n.Message,
		"received_at":     n.ReceivedAt.UTC(),
		"archived_at":     time.Now().UTC(),
	}
	if len(n.Payload) > 0 {
		doc["payload"] = string(n.Payload)
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByKind returns the newest notifications of the given kind.
func (r *NotificationRepository) ListByKind(ctx context.Context, kind string, limit int64) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.M{"received_at": -1}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.M{"kind": kind}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.Notification
	for cur.Next(ctx) {
		var doc struct {
			NotificationID string    `bson:"notification_id"`
			Kind           string    `bson:"kind"`
			Message        string    `bson:"message"`
			Payload        string    `bson:"payload"`
			ReceivedAt     time.Time `bson:"received_at"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, domain.Notification{
			ID:         doc.NotificationID,
			Kind:       doc.Kind,
			Message:    doc.Message,
			Payload:    []byte(doc.Payload),
			ReceivedAt: doc.ReceivedAt,
		})
	}
	return out, cur.Err()
}
