package messaging

import (
	"context"
	"sync"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/types"
)

// MemoryStore keeps messages in process memory in arrival order
type MemoryStore struct {
	mu       sync.RWMutex
	messages []types.Message
}

// NewMemoryStore creates an empty in-memory message store
func NewMemoryStore() interfaces.MessageStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemoryStore) Conversation(ctx context.Context, a, b string) ([]*types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*types.Message, 0)
	for i := range s.messages {
		m := s.messages[i]
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			result = append(result, &m)
		}
	}
	return result, nil
}
