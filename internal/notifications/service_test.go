package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/types"
)

// MockNotificationStore is a mock implementation of interfaces.NotificationStore
type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) Create(ctx context.Context, n *types.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationStore) ListByRecipient(ctx context.Context, recipientID string) ([]*types.Notification, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).([]*types.Notification), args.Error(1)
}

func (m *MockNotificationStore) Get(ctx context.Context, id string) (*types.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Notification), args.Error(1)
}

func (m *MockNotificationStore) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestService_Notify(t *testing.T) {
	svc := NewService(NewMemoryStore(), monitoring.NewMetricsCollector("test"), logger.NewNop())
	ctx := context.Background()

	n := svc.Notify(ctx, "patient-1", "Doctor Rao is responding to your emergency!", types.CategoryResponse)
	require.NotNil(t, n)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.IsRead)
	assert.Equal(t, types.CategoryResponse, n.Category)

	list, err := svc.List(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
}

func TestService_Notify_StoreFailureIsSwallowed(t *testing.T) {
	store := new(MockNotificationStore)
	store.On("Create", mock.Anything, mock.AnythingOfType("*types.Notification")).Return(errors.New("disk full"))

	svc := NewService(store, nil, logger.NewNop())

	assert.NotPanics(t, func() {
		n := svc.Notify(context.Background(), "doctor-1", "hello", types.CategoryUpdate)
		assert.Nil(t, n)
	})
	store.AssertExpectations(t)
}

func TestService_List_NewestFirst(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, logger.NewNop())
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := svc.Notify(ctx, "patient-1", "first", types.CategoryUpdate)
	second := svc.Notify(ctx, "patient-1", "second", types.CategoryUpdate)
	svc.Notify(ctx, "patient-2", "other", types.CategoryUpdate)

	list, err := svc.List(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestService_MarkRead(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, logger.NewNop())
	ctx := context.Background()

	n := svc.Notify(ctx, "patient-1", "Incoming Video Call from Dr. Rao", types.CategoryAppointment)
	require.NotNil(t, n)

	updated, err := svc.MarkRead(ctx, n.ID, "patient-1")
	require.NoError(t, err)
	assert.True(t, updated.IsRead)

	// idempotent
	updated, err = svc.MarkRead(ctx, n.ID, "patient-1")
	require.NoError(t, err)
	assert.True(t, updated.IsRead)

	list, err := svc.List(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, list[0].IsRead)
}

func TestService_MarkRead_Errors(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, logger.NewNop())
	ctx := context.Background()

	n := svc.Notify(ctx, "patient-1", "hello", types.CategoryUpdate)
	require.NotNil(t, n)

	_, err := svc.MarkRead(ctx, n.ID, "patient-2")
	assert.True(t, types.IsForbidden(err))

	_, err = svc.MarkRead(ctx, "00000000-0000-0000-0000-000000000000", "patient-1")
	assert.True(t, types.IsNotFound(err))

	_, err = svc.MarkRead(ctx, "not-a-uuid", "patient-1")
	assert.True(t, types.IsNotFound(err))

	stored, err := svc.List(ctx, "patient-1")
	require.NoError(t, err)
	assert.False(t, stored[0].IsRead, "forbidden attempt must not change the record")
}
