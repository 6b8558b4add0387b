package types

import "time"

// VitalType names a measured vital sign
type VitalType string

const (
	VitalBloodPressure VitalType = "blood_pressure"
	VitalHeartRate     VitalType = "heart_rate"
	VitalBloodSugar    VitalType = "blood_sugar"
	VitalTemperature   VitalType = "temperature"
	VitalWeight        VitalType = "weight"
	VitalOxygen        VitalType = "oxygen_level"
)

// Vital is one recorded measurement. Value is kept as entered ("120/80", "98.6").
type Vital struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user" db:"user_id"`
	Type       VitalType `json:"type" db:"type"`
	Value      string    `json:"value" db:"value"`
	Unit       string    `json:"unit,omitempty" db:"unit"`
	Notes      string    `json:"notes,omitempty" db:"notes"`
	RecordedAt time.Time `json:"recordedAt" db:"recorded_at"`
}

// Valid reports whether t is a known vital type
func (t VitalType) Valid() bool {
	switch t {
	case VitalBloodPressure, VitalHeartRate, VitalBloodSugar, VitalTemperature, VitalWeight, VitalOxygen:
		return true
	}
	return false
}
