package types

import "time"

// DoctorLocation is the single latest position known for a doctor
type DoctorLocation struct {
	DoctorID    string    `json:"doctorId" db:"doctor_id"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	IsAvailable bool      `json:"isAvailable" db:"is_available"`
	Timestamp   time.Time `json:"timestamp" db:"recorded_at"`
}

// NearbyDoctor is a location annotated with its distance from a query point
type NearbyDoctor struct {
	DoctorLocation
	DistanceMeters float64  `json:"distance"`
	Doctor         *Contact `json:"doctor,omitempty"`
}
