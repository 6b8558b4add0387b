package vitals

import (
	"context"
	"sort"
	"sync"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/types"
)

// MemoryRepository keeps vitals in process memory
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*types.Vital
}

// NewMemoryRepository creates an empty in-memory vitals repository
func NewMemoryRepository() interfaces.VitalRepository {
	return &MemoryRepository{byID: make(map[string]*types.Vital)}
}

func (m *MemoryRepository) Create(ctx context.Context, v *types.Vital) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *v
	m.byID[v.ID] = &stored
	return nil
}

func (m *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*types.Vital, error) {
	m.mu.RLock()
	result := make([]*types.Vital, 0)
	for _, v := range m.byID {
		if v.UserID == userID {
			copied := *v
			result = append(result, &copied)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].RecordedAt.Equal(result[j].RecordedAt) {
			return result[i].RecordedAt.After(result[j].RecordedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*types.Vital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, errVitalNotFound()
	}
	copied := *v
	return &copied, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return errVitalNotFound()
	}
	delete(m.byID, id)
	return nil
}
