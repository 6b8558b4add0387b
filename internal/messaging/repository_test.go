package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	log := logger.NewNop()
	repo := &Repository{db: database.Wrap(db, log), logger: log}

	return repo, mock, func() { db.Close() }
}

var messageColumns = []string{"id", "sender_id", "receiver_id", "content", "sent_at"}

func TestRepository_Create(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	msg := &types.Message{
		ID:         "6a1f0e52-2b7c-4c1e-8d0b-3e9f7a5c4d21",
		SenderID:   "patient-1",
		ReceiverID: "doctor-1",
		Content:    "Can I take the tablets with food?",
		Timestamp:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Conversation(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(messageColumns).
		AddRow("id-1", "patient-1", "doctor-1", "hello", now.Add(-time.Minute)).
		AddRow("id-2", "doctor-1", "patient-1", "hi, how are you feeling?", now)

	mock.ExpectQuery("SELECT (.+) FROM messages WHERE (.+) ORDER BY sent_at ASC").
		WithArgs("patient-1", "doctor-1").
		WillReturnRows(rows)

	messages, err := repo.Conversation(context.Background(), "patient-1", "doctor-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "id-1", messages[0].ID)
	assert.Equal(t, "doctor-1", messages[1].SenderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ConversationError(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM messages").
		WithArgs("patient-1", "doctor-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Conversation(context.Background(), "patient-1", "doctor-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
