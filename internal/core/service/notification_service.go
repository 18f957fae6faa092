package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
)

type notificationService struct {
	archive  ports.NotificationArchive
	history  ports.NotificationHistory
	validate *validator.Validate
	log      zerolog.Logger
}

// NewNotificationService returns a NotificationService that archives every
// notification durably and mirrors it into the bounded recent-history list.
func NewNotificationService(
	archive ports.NotificationArchive,
	history ports.NotificationHistory,
	log zerolog.Logger,
) ports.NotificationService {
	return &notificationService{
		archive:  archive,
		history:  history,
		validate: validator.New(),
		log:      log,
	}
}

// Process validates and persists a single notification. Archive failures are
// fatal to the call; history failures only degrade the dropdown and are
// logged instead.
func (s *notificationService) Process(ctx context.Context, n *domain.Notification) error {
	if err := s.validate.Struct(n); err != nil {
		return fmt.Errorf("process notification: %w", err)
	}

	if err := s.archive.Insert(ctx, n); err != nil {
		return fmt.Errorf("process notification: %w", err)
	}

	if err := s.history.Push(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("kind", n.Kind).Msg("failed to push notification history")
	}

	s.log.Info().
		Str("id", n.ID).
		Str("kind", n.Kind).
		Msg("notification archived")

	return nil
}

// Recent serves the dropdown history, newest first.
func (s *notificationService) Recent(ctx context.Context, limit int64) ([]domain.Notification, error) {
	return s.history.Recent(ctx, limit)
}
