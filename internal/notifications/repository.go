package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// Repository implements interfaces.NotificationStore on PostgreSQL
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new notification repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.NotificationStore {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// Create inserts a notification. ID and CreatedAt must already be set.
func (r *Repository) Create(ctx context.Context, n *types.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, message, category, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, n.ID, n.RecipientID, n.Message, string(n.Category), n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByRecipient returns the recipient's notifications, newest first
func (r *Repository) ListByRecipient(ctx context.Context, recipientID string) ([]*types.Notification, error) {
	query := `
		SELECT id, recipient_id, message, category, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]*types.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return result, nil
}

// Get returns a single notification by id
func (r *Repository) Get(ctx context.Context, id string) (*types.Notification, error) {
	query := `
		SELECT id, recipient_id, message, category, is_read, created_at
		FROM notifications
		WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotificationNotFound()
		}
		return nil, err
	}
	return n, nil
}

// MarkRead sets is_read. Marking an already read notification is not an error.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return errNotificationNotFound()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*types.Notification, error) {
	n := &types.Notification{}
	var category string
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Message, &category, &n.IsRead, &n.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	n.Category = types.NotificationCategory(category)
	return n, nil
}

func errNotificationNotFound() error {
	return types.NewNotFoundError(types.ErrCodeNotFound, "Notification not found")
}
