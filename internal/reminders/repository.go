package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

const dateLayout = "2006-01-02"

// Repository implements interfaces.ScheduleRepository on PostgreSQL. The
// medicines and users tables are read only; medicine_adherence is written
// through ClaimSlot.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new schedule repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.ScheduleRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// ActiveSchedules returns reminder-enabled schedules running at at, with the
// patient contact and at's adherence entries attached
func (r *Repository) ActiveSchedules(ctx context.Context, at time.Time) ([]*types.MedicineSchedule, error) {
	query := `
		SELECT m.id, m.patient_id, m.name, m.dosage, m.instructions, m.timings,
		       m.start_date, m.end_date, m.reminder_enabled, m.active,
		       u.name, u.email, u.phone
		FROM medicines m
		JOIN users u ON u.id = m.patient_id
		WHERE m.active = TRUE
		  AND m.reminder_enabled = TRUE
		  AND m.start_date <= $1
		  AND m.end_date >= $1
		ORDER BY m.id`

	rows, err := r.db.QueryContext(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("failed to query active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*types.MedicineSchedule
	byID := make(map[string]*types.MedicineSchedule)
	for rows.Next() {
		m := &types.MedicineSchedule{}
		var timings pq.StringArray
		if err := rows.Scan(
			&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Instructions, &timings,
			&m.StartDate, &m.EndDate, &m.ReminderEnabled, &m.Active,
			&m.Patient.Name, &m.Patient.Email, &m.Patient.Phone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		m.Timings = []string(timings)
		m.Patient.UserID = m.PatientID
		m.Patient.Role = types.RolePatient
		schedules = append(schedules, m)
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}

	if len(schedules) == 0 {
		return schedules, nil
	}
	if err := r.attachAdherence(ctx, at, byID); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *Repository) attachAdherence(ctx context.Context, at time.Time, byID map[string]*types.MedicineSchedule) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `
		SELECT medicine_id, slot, taken
		FROM medicine_adherence
		WHERE date = $1 AND medicine_id = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, at.Format(dateLayout), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query adherence: %w", err)
	}
	defer rows.Close()

	// DATE columns carry no zone; entries are stamped with at's calendar day
	day := types.DayStart(at)
	for rows.Next() {
		var medicineID string
		entry := types.AdherenceEntry{Date: day}
		if err := rows.Scan(&medicineID, &entry.Slot, &entry.Taken); err != nil {
			return fmt.Errorf("failed to scan adherence: %w", err)
		}
		if m, ok := byID[medicineID]; ok {
			m.Adherence = append(m.Adherence, entry)
		}
	}
	return rows.Err()
}

// ClaimSlot inserts the (schedule, day, slot) firing if absent
func (r *Repository) ClaimSlot(ctx context.Context, scheduleID string, day time.Time, slot string) (bool, error) {
	query := `
		INSERT INTO medicine_adherence (medicine_id, date, slot, taken)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (medicine_id, date, slot) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, scheduleID, day.Format(dateLayout), slot)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}
