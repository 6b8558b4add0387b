package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/meditrack/coordination/pkg/types"
)

// MemoryDirectory is a Directory seeded in process, used by the memory
// storage driver and by tests
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]types.Contact
}

// NewMemoryDirectory creates a directory holding the given contacts
func NewMemoryDirectory(contacts ...types.Contact) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]types.Contact)}
	for _, c := range contacts {
		d.Put(c)
	}
	return d
}

// Put adds or replaces a contact
func (d *MemoryDirectory) Put(c types.Contact) {
	d.mu.Lock()
	d.users[c.UserID] = c
	d.mu.Unlock()
}

func (d *MemoryDirectory) DoctorIDs(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for id, c := range d.users {
		if c.Role == types.RoleDoctor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *MemoryDirectory) Contact(ctx context.Context, userID string) (*types.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.users[userID]
	if !ok {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
	}
	return &c, nil
}

func (d *MemoryDirectory) Profiles(ctx context.Context, userIDs []string) (map[string]*types.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make(map[string]*types.Contact, len(userIDs))
	for _, id := range userIDs {
		if c, ok := d.users[id]; ok {
			c := c
			result[id] = &c
		}
	}
	return result, nil
}
