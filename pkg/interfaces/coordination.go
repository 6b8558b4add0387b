package interfaces

import (
	"context"
	"time"

	"github.com/meditrack/coordination/pkg/types"
)

// LocationStore holds the latest position of every doctor
type LocationStore interface {
	// Upsert overwrites the single record for doctorID and stamps it with now
	Upsert(ctx context.Context, doctorID string, lon, lat float64, available bool) (*types.DoctorLocation, error)
	// Get returns a not-found AppError when the doctor never reported
	Get(ctx context.Context, doctorID string) (*types.DoctorLocation, error)
	// Nearby returns available doctors within maxMeters, closest first
	Nearby(ctx context.Context, lat, lon, maxMeters float64) ([]*types.NearbyDoctor, error)
}

// NotificationStore persists per-recipient notifications
type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]*types.Notification, error)
	Get(ctx context.Context, id string) (*types.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Notifications is the notification service other components depend on
type Notifications interface {
	// Notify never fails the caller; a nil result means the write was logged and dropped
	Notify(ctx context.Context, recipientID, message string, category types.NotificationCategory) *types.Notification
}

// Directory answers identity questions about users owned by another service
type Directory interface {
	DoctorIDs(ctx context.Context) ([]string, error)
	Contact(ctx context.Context, userID string) (*types.Contact, error)
	Profiles(ctx context.Context, userIDs []string) (map[string]*types.Contact, error)
}

// Publisher delivers an outbound realtime event to the given rooms
type Publisher interface {
	Publish(event string, payload interface{}, rooms ...string)
}

// BusinessNotifier is the create-then-publish entry point for collaborators
type BusinessNotifier interface {
	PatientUpdate(ctx context.Context, patientID, kind, message string)
	HealthAlert(ctx context.Context, recipientID, message string)
	MedicineReminder(ctx context.Context, patientID string, reminder types.MedicineReminder)
}

// MessageNotifier pushes a stored direct message to both participants
type MessageNotifier interface {
	DirectMessage(ctx context.Context, msg *types.Message)
}

// MessageStore persists direct messages
type MessageStore interface {
	Create(ctx context.Context, msg *types.Message) error
	// Conversation returns the messages exchanged between a and b in either direction, oldest first
	Conversation(ctx context.Context, a, b string) ([]*types.Message, error)
}

// ScheduleRepository reads medicine schedules and records reminder firings
type ScheduleRepository interface {
	// ActiveSchedules returns active, reminder-enabled schedules whose range contains at,
	// with the patient contact and the adherence entries for at's day populated
	ActiveSchedules(ctx context.Context, at time.Time) ([]*types.MedicineSchedule, error)
	// ClaimSlot records the firing of (scheduleID, day, slot); false means it was already recorded
	ClaimSlot(ctx context.Context, scheduleID string, day time.Time, slot string) (bool, error)
}

// DeliveryMessage is one outbound email/SMS message
type DeliveryMessage struct {
	To      types.Contact
	Subject string
	Body    string
}

// Dispatcher fans a message out to email and SMS
type Dispatcher interface {
	Deliver(ctx context.Context, msg DeliveryMessage) error
}

// VitalRepository stores vital readings
type VitalRepository interface {
	Create(ctx context.Context, v *types.Vital) error
	// ListByUser returns the user's readings, newest first
	ListByUser(ctx context.Context, userID string) ([]*types.Vital, error)
	Get(ctx context.Context, id string) (*types.Vital, error)
	Delete(ctx context.Context, id string) error
}
