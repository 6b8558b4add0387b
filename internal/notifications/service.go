package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/types"
)

// Service owns the notification stream of every user
type Service struct {
	store   interfaces.NotificationStore
	metrics *monitoring.MetricsCollector
	logger  *logger.Logger
	now     func() time.Time
}

// NewService creates a notification service. metrics may be nil.
func NewService(store interfaces.NotificationStore, metrics *monitoring.MetricsCollector, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		metrics: metrics,
		logger:  log,
		now:     time.Now,
	}
}

// Notify records a notification for recipientID. Storage failures are logged
// and reported as a nil result; they never fail the caller's flow.
func (s *Service) Notify(ctx context.Context, recipientID, message string, category types.NotificationCategory) *types.Notification {
	n := &types.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Message:     message,
		Category:    category,
		IsRead:      false,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Create(ctx, n); err != nil {
		s.logger.WithComponent("notifications").WithFields(map[string]interface{}{
			"recipient_id": recipientID,
			"category":     string(category),
		}).WithError(err).Error("Failed to create notification")
		if s.metrics != nil {
			s.metrics.RecordNotification(string(category), false)
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordNotification(string(category), true)
	}
	return n
}

// List returns the recipient's notifications, newest first
func (s *Service) List(ctx context.Context, recipientID string) ([]*types.Notification, error) {
	return s.store.ListByRecipient(ctx, recipientID)
}

// MarkRead marks one of the requester's notifications as read and returns it.
// Repeating the call is harmless.
func (s *Service) MarkRead(ctx context.Context, id, requesterID string) (*types.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotificationNotFound()
	}

	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if n.RecipientID != requesterID {
		s.logger.Audit(requesterID, "mark_read", "notification:"+id, false, map[string]interface{}{
			"reason": "not recipient",
		})
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Not authorized")
	}

	if !n.IsRead {
		if err := s.store.MarkRead(ctx, id); err != nil {
			return nil, err
		}
		n.IsRead = true
	}
	return n, nil
}
