// Package directory reads user identities from the users table owned by the
// account service.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// Repository implements interfaces.Directory on PostgreSQL. It never writes.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new directory repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.Directory {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// DoctorIDs returns the id of every registered doctor
func (r *Repository) DoctorIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE role = $1 ORDER BY id`, string(types.RoleDoctor))
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan doctor id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate doctors: %w", err)
	}
	return ids, nil
}

// Contact returns a single user's reachable identity
func (r *Repository) Contact(ctx context.Context, userID string) (*types.Contact, error) {
	query := `
		SELECT id, name, email, phone, role, specialization, hospital
		FROM users
		WHERE id = $1`

	c, err := scanContact(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return c, nil
}

// Profiles returns the contacts of the given users keyed by id. Unknown ids are omitted.
func (r *Repository) Profiles(ctx context.Context, userIDs []string) (map[string]*types.Contact, error) {
	result := make(map[string]*types.Contact, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, name, email, phone, role, specialization, hospital
		FROM users
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		result[c.UserID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*types.Contact, error) {
	c := &types.Contact{}
	var role string
	if err := row.Scan(&c.UserID, &c.Name, &c.Email, &c.Phone, &role, &c.Specialization, &c.Hospital); err != nil {
		return nil, err
	}
	c.Role = types.UserRole(role)
	return c, nil
}
