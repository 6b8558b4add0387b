package notifications

import (
	"context"
	"sort"
	"sync"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/types"
)

// MemoryStore keeps notifications in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*types.Notification
	order map[string]int
	seq   int
}

// NewMemoryStore creates an empty in-memory notification store
func NewMemoryStore() interfaces.NotificationStore {
	return &MemoryStore{
		byID:  make(map[string]*types.Notification),
		order: make(map[string]int),
	}
}

func (s *MemoryStore) Create(ctx context.Context, n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	s.byID[n.ID] = &stored
	s.seq++
	s.order[n.ID] = s.seq
	return nil
}

func (s *MemoryStore) ListByRecipient(ctx context.Context, recipientID string) ([]*types.Notification, error) {
	s.mu.RLock()
	result := make([]*types.Notification, 0)
	order := make(map[string]int)
	for id, n := range s.byID {
		if n.RecipientID != recipientID {
			continue
		}
		copied := *n
		result = append(result, &copied)
		order[id] = s.order[id]
	}
	s.mu.RUnlock()

	// newest first; insertion order breaks equal timestamps
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return order[result[i].ID] > order[result[j].ID]
	})
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, errNotificationNotFound()
	}
	copied := *n
	return &copied, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return errNotificationNotFound()
	}
	n.IsRead = true
	return nil
}
