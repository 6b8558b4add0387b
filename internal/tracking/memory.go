package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/meditrack/coordination/pkg/geo"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/types"
)

// MemoryStore is the in-process LocationStore used by the memory driver
type MemoryStore struct {
	mu        sync.RWMutex
	locations map[string]types.DoctorLocation
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory location store
func NewMemoryStore() interfaces.LocationStore {
	return &MemoryStore{
		locations: make(map[string]types.DoctorLocation),
		now:       time.Now,
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, doctorID string, lon, lat float64, available bool) (*types.DoctorLocation, error) {
	if err := validatePoint(doctorID, lat, lon); err != nil {
		return nil, err
	}

	loc := types.DoctorLocation{
		DoctorID:    doctorID,
		Longitude:   lon,
		Latitude:    lat,
		IsAvailable: available,
		Timestamp:   s.now().UTC(),
	}

	s.mu.Lock()
	s.locations[doctorID] = loc
	s.mu.Unlock()

	return &loc, nil
}

func (s *MemoryStore) Get(ctx context.Context, doctorID string) (*types.DoctorLocation, error) {
	s.mu.RLock()
	loc, ok := s.locations[doctorID]
	s.mu.RUnlock()

	if !ok {
		return nil, errLocationNotFound(doctorID)
	}
	return &loc, nil
}

func (s *MemoryStore) Nearby(ctx context.Context, lat, lon, maxMeters float64) ([]*types.NearbyDoctor, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, errInvalidCoordinates(lat, lon)
	}

	s.mu.RLock()
	locs := make([]*types.DoctorLocation, 0, len(s.locations))
	for _, loc := range s.locations {
		loc := loc
		locs = append(locs, &loc)
	}
	s.mu.RUnlock()

	return withinRadius(locs, lat, lon, maxMeters), nil
}
