package messaging

import (
	"context"
	"fmt"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// Repository implements interfaces.MessageStore on PostgreSQL
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new message repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.MessageStore {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// Create inserts a message. ID and Timestamp must already be set.
func (r *Repository) Create(ctx context.Context, msg *types.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, sent_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// Conversation returns both directions of the a/b thread, oldest first
func (r *Repository) Conversation(ctx context.Context, a, b string) ([]*types.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, content, sent_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	defer rows.Close()

	result := make([]*types.Message, 0)
	for rows.Next() {
		msg := &types.Message{}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return result, nil
}
