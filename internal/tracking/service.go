package tracking

import (
	"context"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// DefaultMaxDistanceMeters is the nearby search radius when none is given
const DefaultMaxDistanceMeters = 10000.0

// Service exposes doctor locations to HTTP handlers and the realtime hub
type Service struct {
	store              interfaces.LocationStore
	directory          interfaces.Directory
	logger             *logger.Logger
	defaultMaxDistance float64
}

// NewService creates a tracking service. directory may be nil, in which case
// nearby results carry no doctor profile.
func NewService(store interfaces.LocationStore, directory interfaces.Directory, defaultMaxDistance float64, log *logger.Logger) *Service {
	if defaultMaxDistance <= 0 {
		defaultMaxDistance = DefaultMaxDistanceMeters
	}
	return &Service{
		store:              store,
		directory:          directory,
		logger:             log,
		defaultMaxDistance: defaultMaxDistance,
	}
}

// UpdateLocation records the doctor's position and marks them available.
// Availability is never cleared automatically.
func (s *Service) UpdateLocation(ctx context.Context, doctorID string, lat, lon float64) (*types.DoctorLocation, error) {
	loc, err := s.store.Upsert(ctx, doctorID, lon, lat, true)
	if err != nil {
		return nil, err
	}
	s.logger.WithComponent("tracking").WithField("doctor_id", doctorID).Debug("Doctor location updated")
	return loc, nil
}

// DoctorLocation returns a doctor's last known location
func (s *Service) DoctorLocation(ctx context.Context, doctorID string) (*types.DoctorLocation, error) {
	return s.store.Get(ctx, doctorID)
}

// FindNearby returns available doctors within maxMeters, closest first.
// A non-positive radius uses the configured default.
func (s *Service) FindNearby(ctx context.Context, lat, lon, maxMeters float64) ([]*types.NearbyDoctor, error) {
	if maxMeters <= 0 {
		maxMeters = s.defaultMaxDistance
	}

	doctors, err := s.store.Nearby(ctx, lat, lon, maxMeters)
	if err != nil {
		return nil, err
	}

	if s.directory == nil || len(doctors) == 0 {
		return doctors, nil
	}

	ids := make([]string, len(doctors))
	for i, d := range doctors {
		ids[i] = d.DoctorID
	}
	profiles, err := s.directory.Profiles(ctx, ids)
	if err != nil {
		s.logger.WithComponent("tracking").WithError(err).Warn("Failed to load doctor profiles")
		return doctors, nil
	}
	for _, d := range doctors {
		d.Doctor = profiles[d.DoctorID]
	}
	return doctors, nil
}
