package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	log := logger.NewNop()
	return &Repository{db: database.Wrap(db, log), logger: log}, mock, func() { db.Close() }
}

func TestRepository_ActiveSchedules(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	at := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM medicines m JOIN users u ON u.id = m.patient_id WHERE m.active = TRUE").
		WithArgs(at).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "patient_id", "name", "dosage", "instructions", "timings",
			"start_date", "end_date", "reminder_enabled", "active",
			"name", "email", "phone",
		}).AddRow(
			"med-1", "patient-1", "Metformin", "500mg", "After food", "{08:00,20:00}",
			at.AddDate(0, 0, -1), at.AddDate(0, 0, 1), true, true,
			"Asha", "asha@example.com", "+15550100",
		))

	mock.ExpectQuery("SELECT medicine_id, slot, taken FROM medicine_adherence WHERE date = \\$1 AND medicine_id = ANY\\(\\$2\\)").
		WithArgs("2026-03-14", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"medicine_id", "slot", "taken"}).AddRow("med-1", "08:00", false))

	schedules, err := repo.ActiveSchedules(context.Background(), at)
	require.NoError(t, err)
	require.Len(t, schedules, 1)

	m := schedules[0]
	assert.Equal(t, []string{"08:00", "20:00"}, m.Timings)
	assert.Equal(t, "asha@example.com", m.Patient.Email)
	assert.Equal(t, "patient-1", m.Patient.UserID)
	assert.True(t, m.Fired(at, "08:00"))
	assert.False(t, m.Fired(at, "20:00"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ActiveSchedules_Empty(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM medicines").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	schedules, err := repo.ActiveSchedules(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, schedules)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClaimSlot(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO medicine_adherence (.+) ON CONFLICT \\(medicine_id, date, slot\\) DO NOTHING").
		WithArgs("med-1", "2026-03-14", "08:00").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO medicine_adherence").
		WithArgs("med-1", "2026-03-14", "08:00").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimSlot(context.Background(), "med-1", day, "08:00")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimSlot(context.Background(), "med-1", day, "08:00")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepository_ClaimedSlotsAppearAsAdherence(t *testing.T) {
	at := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository(types.MedicineSchedule{
		ID: "med-1", Active: true, ReminderEnabled: true, Timings: []string{"08:00"},
		StartDate: at.AddDate(0, 0, -1), EndDate: at.AddDate(0, 0, 1),
	})

	ok, err := repo.ClaimSlot(context.Background(), "med-1", types.DayStart(at), "08:00")
	require.NoError(t, err)
	require.True(t, ok)

	schedules, err := repo.ActiveSchedules(context.Background(), at)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.True(t, schedules[0].Fired(at, "08:00"))

	// the next day starts clean
	next := at.AddDate(0, 0, 1)
	schedules, err = repo.ActiveSchedules(context.Background(), next)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.False(t, schedules[0].Fired(next, "08:00"))
}
