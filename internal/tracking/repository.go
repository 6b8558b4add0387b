package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/geo"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// Repository implements interfaces.LocationStore on PostgreSQL
type Repository struct {
	db     *database.DB
	logger *logger.Logger
	now    func() time.Time
}

// NewRepository creates a new location repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.LocationStore {
	return &Repository{
		db:     db,
		logger: log,
		now:    time.Now,
	}
}

// Upsert overwrites the doctor's single location row
func (r *Repository) Upsert(ctx context.Context, doctorID string, lon, lat float64, available bool) (*types.DoctorLocation, error) {
	if err := validatePoint(doctorID, lat, lon); err != nil {
		return nil, err
	}

	loc := &types.DoctorLocation{
		DoctorID:    doctorID,
		Longitude:   lon,
		Latitude:    lat,
		IsAvailable: available,
		Timestamp:   r.now().UTC(),
	}

	query := `
		INSERT INTO doctor_locations (doctor_id, longitude, latitude, is_available, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doctor_id) DO UPDATE SET
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			is_available = EXCLUDED.is_available,
			recorded_at = EXCLUDED.recorded_at,
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, loc.DoctorID, loc.Longitude, loc.Latitude, loc.IsAvailable, loc.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to upsert doctor location: %w", err)
	}

	return loc, nil
}

// Get returns the doctor's last known location
func (r *Repository) Get(ctx context.Context, doctorID string) (*types.DoctorLocation, error) {
	query := `
		SELECT doctor_id, longitude, latitude, is_available, recorded_at
		FROM doctor_locations
		WHERE doctor_id = $1`

	loc := &types.DoctorLocation{}
	err := r.db.QueryRowContext(ctx, query, doctorID).Scan(
		&loc.DoctorID,
		&loc.Longitude,
		&loc.Latitude,
		&loc.IsAvailable,
		&loc.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errLocationNotFound(doctorID)
		}
		return nil, fmt.Errorf("failed to get doctor location: %w", err)
	}

	return loc, nil
}

// Nearby prefilters by bounding box in SQL and applies the exact radius in Go
func (r *Repository) Nearby(ctx context.Context, lat, lon, maxMeters float64) ([]*types.NearbyDoctor, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, errInvalidCoordinates(lat, lon)
	}

	box := geo.Bounds(lat, lon, maxMeters)
	query := `
		SELECT doctor_id, longitude, latitude, is_available, recorded_at
		FROM doctor_locations
		WHERE is_available = TRUE AND latitude BETWEEN $1 AND $2`
	args := []interface{}{box.MinLat, box.MaxLat}
	if !box.WrapsLongitude {
		query += ` AND longitude BETWEEN $3 AND $4`
		args = append(args, box.MinLon, box.MaxLon)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby doctors: %w", err)
	}
	defer rows.Close()

	var candidates []*types.DoctorLocation
	for rows.Next() {
		loc := &types.DoctorLocation{}
		if err := rows.Scan(&loc.DoctorID, &loc.Longitude, &loc.Latitude, &loc.IsAvailable, &loc.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan doctor location: %w", err)
		}
		candidates = append(candidates, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate doctor locations: %w", err)
	}

	return withinRadius(candidates, lat, lon, maxMeters), nil
}

// withinRadius keeps available locations no farther than maxMeters, closest first
func withinRadius(locs []*types.DoctorLocation, lat, lon, maxMeters float64) []*types.NearbyDoctor {
	result := make([]*types.NearbyDoctor, 0, len(locs))
	for _, loc := range locs {
		if !loc.IsAvailable {
			continue
		}
		d := geo.DistanceMeters(lat, lon, loc.Latitude, loc.Longitude)
		if d > maxMeters {
			continue
		}
		result = append(result, &types.NearbyDoctor{DoctorLocation: *loc, DistanceMeters: d})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DistanceMeters == result[j].DistanceMeters {
			return result[i].DoctorID < result[j].DoctorID
		}
		return result[i].DistanceMeters < result[j].DistanceMeters
	})
	return result
}

func validatePoint(doctorID string, lat, lon float64) error {
	if doctorID == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Doctor id is required", nil)
	}
	if !geo.ValidCoordinates(lat, lon) {
		return errInvalidCoordinates(lat, lon)
	}
	return nil
}

func errInvalidCoordinates(lat, lon float64) error {
	return types.NewValidationError(types.ErrCodeInvalidCoordinates, "Invalid coordinates", map[string]interface{}{
		"latitude":  lat,
		"longitude": lon,
	})
}

func errLocationNotFound(doctorID string) error {
	return types.NewNotFoundError(types.ErrCodeNotFound, "Doctor location not found")
}
