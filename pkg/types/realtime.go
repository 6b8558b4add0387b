package types

import (
	"encoding/json"
	"time"
)

// Inbound event names
const (
	EventDoctorLocationUpdate    = "doctor:location:update"
	EventPatientEmergency        = "patient:emergency"
	EventDoctorEmergencyResponse = "doctor:emergency:response"
	EventVideoCallStart          = "video:call:start"
	EventPatientTrackDoctor      = "patient:track:doctor"
)

// Outbound event names
const (
	EventDoctorLocationUpdated = "doctor:location:updated"
	EventEmergencyAlert        = "emergency:alert"
	EventEmergencyResponse     = "emergency:response"
	EventVideoCallInvite       = "video:call:invite"
	EventETACalculated         = "eta:calculated"
	EventError                 = "error"
	EventPatientUpdate         = "patient:update"
	EventPatientHealthAlert    = "patient:health_alert"
	EventMedicineReminderBase  = "medicine:reminder:"
	EventMessageReceive        = "message:receive"
)

// MedicineReminderEvent is the per-patient reminder event name
func MedicineReminderEvent(patientID string) string {
	return EventMedicineReminderBase + patientID
}

// Envelope is the frame exchanged over the websocket in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Point is a latitude/longitude pair as it appears on the wire
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationUpdateRequest is the doctor:location:update payload
type LocationUpdateRequest struct {
	DoctorID  string   `json:"doctorId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// LocationUpdated is the doctor:location:updated payload
type LocationUpdated struct {
	DoctorID  string    `json:"doctorId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// EmergencyRequest is the patient:emergency payload
type EmergencyRequest struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Location    *Point `json:"location"`
}

// EmergencyAlert is the emergency:alert payload
type EmergencyAlert struct {
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName"`
	Location    *Point    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

// EmergencyResponseRequest is the doctor:emergency:response payload
type EmergencyResponseRequest struct {
	PatientID  string `json:"patientId"`
	DoctorName string `json:"doctorName"`
	Status     string `json:"status"`
}

// EmergencyResponse is the emergency:response payload
type EmergencyResponse struct {
	PatientID  string    `json:"patientId"`
	DoctorName string    `json:"doctorName"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// CallStartRequest is the video:call:start payload
type CallStartRequest struct {
	RecipientID string `json:"recipientId"`
	SenderName  string `json:"senderName"`
	RoomID      string `json:"roomId"`
}

// CallInvite is the video:call:invite payload
type CallInvite struct {
	RecipientID string    `json:"recipientId"`
	SenderName  string    `json:"senderName"`
	RoomID      string    `json:"roomId"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrackDoctorRequest is the patient:track:doctor payload
type TrackDoctorRequest struct {
	PatientID       string `json:"patientId"`
	DoctorID        string `json:"doctorId"`
	PatientLocation *Point `json:"patientLocation"`
}

// ETACalculated is the eta:calculated payload. Distance is kilometers with two decimals.
type ETACalculated struct {
	DoctorID       string `json:"doctorId"`
	Distance       string `json:"distance"`
	ETA            int    `json:"eta"`
	DoctorLocation Point  `json:"doctorLocation"`
}

// ErrorEvent is the unicast error payload
type ErrorEvent struct {
	Message string `json:"message"`
}

// PatientUpdate is the patient:update payload
type PatientUpdate struct {
	PatientID string `json:"patientId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// HealthAlert is the patient:health_alert payload
type HealthAlert struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// MedicineReminder is the medicine:reminder:<patientId> payload
type MedicineReminder struct {
	MedicineID string `json:"medicineId"`
	Name       string `json:"name"`
	Dosage     string `json:"dosage"`
	Time       string `json:"time"`
}
