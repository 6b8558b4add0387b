package types

import (
	"fmt"
	"strings"
	"time"
)

// SlotLayout is the HH:MM layout used for schedule slots
const SlotLayout = "15:04"

// MedicineSchedule is a patient's medicine plan as read by the reminder scanner
type MedicineSchedule struct {
	ID              string    `json:"id" db:"id"`
	PatientID       string    `json:"patientId" db:"patient_id"`
	Name            string    `json:"name" db:"name"`
	Dosage          string    `json:"dosage" db:"dosage"`
	Instructions    string    `json:"instructions,omitempty" db:"instructions"`
	Timings         []string  `json:"timings" db:"timings"`
	StartDate       time.Time `json:"startDate" db:"start_date"`
	EndDate         time.Time `json:"endDate" db:"end_date"`
	ReminderEnabled bool      `json:"reminderEnabled" db:"reminder_enabled"`
	Active          bool      `json:"active" db:"active"`

	// Patient is the owner's contact, joined in by the repository
	Patient Contact `json:"-"`
	// Adherence holds the entries already recorded for the scanned day
	Adherence []AdherenceEntry `json:"-"`
}

// AdherenceEntry records that a slot fired (and optionally was taken) on a date
type AdherenceEntry struct {
	Date  time.Time `json:"date" db:"date"`
	Slot  string    `json:"time" db:"slot"`
	Taken bool      `json:"taken" db:"taken"`
}

// HasSlot reports whether slot is one of the schedule's timings
func (m *MedicineSchedule) HasSlot(slot string) bool {
	for _, t := range m.Timings {
		if t == slot {
			return true
		}
	}
	return false
}

// Fired reports whether the adherence log already holds day and slot
func (m *MedicineSchedule) Fired(day time.Time, slot string) bool {
	for _, a := range m.Adherence {
		if SameDay(a.Date, day) && a.Slot == slot {
			return true
		}
	}
	return false
}

// ReminderText is the message sent by email and SMS
func (m *MedicineSchedule) ReminderText() string {
	return strings.TrimSpace(fmt.Sprintf("⏰ Medicine Reminder: Time to take %s (%s). %s", m.Name, m.Dosage, m.Instructions))
}

// SameDay compares calendar dates in a's location
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayStart truncates t to midnight in its own location
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
