package vitals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// Repository implements interfaces.VitalRepository on PostgreSQL
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new vitals repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.VitalRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

func (r *Repository) Create(ctx context.Context, v *types.Vital) error {
	query := `
		INSERT INTO vitals (id, user_id, type, value, unit, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, v.ID, v.UserID, string(v.Type), v.Value, v.Unit, v.Notes, v.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to create vital: %w", err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]*types.Vital, error) {
	query := `
		SELECT id, user_id, type, value, unit, notes, recorded_at
		FROM vitals
		WHERE user_id = $1
		ORDER BY recorded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vitals: %w", err)
	}
	defer rows.Close()

	result := make([]*types.Vital, 0)
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vitals: %w", err)
	}
	return result, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*types.Vital, error) {
	query := `
		SELECT id, user_id, type, value, unit, notes, recorded_at
		FROM vitals
		WHERE id = $1`

	v, err := scanVital(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errVitalNotFound()
		}
		return nil, err
	}
	return v, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vitals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vital: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return errVitalNotFound()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVital(row rowScanner) (*types.Vital, error) {
	v := &types.Vital{}
	var vitalType string
	if err := row.Scan(&v.ID, &v.UserID, &vitalType, &v.Value, &v.Unit, &v.Notes, &v.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan vital: %w", err)
	}
	v.Type = types.VitalType(vitalType)
	return v, nil
}

func errVitalNotFound() error {
	return types.NewNotFoundError(types.ErrCodeNotFound, "Vital record not found")
}
