// Package messaging stores direct messages between patients and doctors and
// pushes each one to both participants over the realtime hub.
package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// SendRequest is a message as submitted by the sender
type SendRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// Service stores messages and hands them to the realtime notifier
type Service struct {
	store    interfaces.MessageStore
	notifier interfaces.MessageNotifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a messaging service
func NewService(store interfaces.MessageStore, notifier interfaces.MessageNotifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// Send stores a message from senderID and publishes message:receive once the
// write succeeded. A failed write publishes nothing.
func (s *Service) Send(ctx context.Context, senderID string, req SendRequest) (*types.Message, error) {
	receiverID := strings.TrimSpace(req.ReceiverID)
	if receiverID == "" || strings.TrimSpace(req.Content) == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "receiverId and content are required", nil)
	}

	msg := &types.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    req.Content,
		Timestamp:  s.now().UTC(),
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Error sending message", err)
	}

	s.notifier.DirectMessage(ctx, msg)
	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"message_id":  msg.ID,
		"receiver_id": receiverID,
	}).Debug("Direct message sent")
	return msg, nil
}

// Conversation returns the thread between userID and otherID, oldest first
func (s *Service) Conversation(ctx context.Context, userID, otherID string) ([]*types.Message, error) {
	messages, err := s.store.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Error fetching messages", err)
	}
	return messages, nil
}
