package reminders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meditrack/coordination/pkg/types"
)

type slotKey struct {
	scheduleID string
	date       string
	slot       string
}

// MemoryRepository keeps schedules and claimed slots in process memory
type MemoryRepository struct {
	mu        sync.Mutex
	schedules map[string]types.MedicineSchedule
	claimed   map[slotKey]bool
}

// NewMemoryRepository creates a repository holding the given schedules
func NewMemoryRepository(schedules ...types.MedicineSchedule) *MemoryRepository {
	r := &MemoryRepository{
		schedules: make(map[string]types.MedicineSchedule),
		claimed:   make(map[slotKey]bool),
	}
	for _, s := range schedules {
		r.Put(s)
	}
	return r
}

// Put adds or replaces a schedule
func (r *MemoryRepository) Put(s types.MedicineSchedule) {
	r.mu.Lock()
	r.schedules[s.ID] = s
	r.mu.Unlock()
}

func (r *MemoryRepository) ActiveSchedules(ctx context.Context, at time.Time) ([]*types.MedicineSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := types.DayStart(at)
	date := at.Format(dateLayout)

	var result []*types.MedicineSchedule
	for _, s := range r.schedules {
		if !s.Active || !s.ReminderEnabled || s.StartDate.After(at) || s.EndDate.Before(at) {
			continue
		}
		copied := s
		copied.Timings = append([]string(nil), s.Timings...)
		copied.Adherence = append([]types.AdherenceEntry(nil), s.Adherence...)
		for key := range r.claimed {
			if key.scheduleID == s.ID && key.date == date {
				copied.Adherence = append(copied.Adherence, types.AdherenceEntry{Date: day, Slot: key.slot})
			}
		}
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryRepository) ClaimSlot(ctx context.Context, scheduleID string, day time.Time, slot string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{scheduleID: scheduleID, date: day.Format(dateLayout), slot: slot}
	if r.claimed[key] {
		return false, nil
	}
	r.claimed[key] = true
	return true, nil
}
