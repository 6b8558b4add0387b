package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// Notifier records a notification and then publishes the matching realtime
// event to the affected user. It implements interfaces.BusinessNotifier and
// interfaces.MessageNotifier.
type Notifier struct {
	notifications interfaces.Notifications
	publisher     interfaces.Publisher
	logger        *logger.Logger
}

// NewNotifier creates a business notifier
func NewNotifier(notifications interfaces.Notifications, publisher interfaces.Publisher, log *logger.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		publisher:     publisher,
		logger:        log,
	}
}

// PatientUpdate tells a patient that one of their records changed
func (n *Notifier) PatientUpdate(ctx context.Context, patientID, kind, message string) {
	n.notifications.Notify(ctx, patientID, message, types.CategoryUpdate)
	n.publisher.Publish(types.EventPatientUpdate, types.PatientUpdate{
		PatientID: patientID,
		Type:      kind,
		Message:   message,
	}, UserRoom(patientID))
}

// HealthAlert warns a user about a risky vital reading
func (n *Notifier) HealthAlert(ctx context.Context, recipientID, message string) {
	n.notifications.Notify(ctx, recipientID, message, types.CategoryEmergency)
	n.publisher.Publish(types.EventPatientHealthAlert, types.HealthAlert{
		Recipient: recipientID,
		Message:   message,
	}, UserRoom(recipientID))
}

// MedicineReminder pushes a due medicine reminder to the patient
func (n *Notifier) MedicineReminder(ctx context.Context, patientID string, reminder types.MedicineReminder) {
	n.notifications.Notify(ctx, patientID,
		fmt.Sprintf("Time to take %s (%s) at %s", reminder.Name, reminder.Dosage, reminder.Time), types.CategoryUpdate)
	n.publisher.Publish(types.MedicineReminderEvent(patientID), reminder, UserRoom(patientID))
}

// DirectMessage pushes msg to the receiver and echoes it to the sender's
// other channels. No notification is recorded; the message itself is stored.
func (n *Notifier) DirectMessage(ctx context.Context, msg *types.Message) {
	n.publisher.Publish(types.EventMessageReceive, msg, UserRoom(msg.ReceiverID), UserRoom(msg.SenderID))
}

type patientUpdateRequest struct {
	PatientID string `json:"patientId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// RegisterRoutes mounts the business event endpoint used by record-owning services
func (n *Notifier) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/events/patient-update", gateway.RequireRole(types.RoleDoctor, n.patientUpdateHandler)).Methods(http.MethodPost)
}

func (n *Notifier) patientUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req patientUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.PatientID == "" || req.Message == "" {
		gateway.WriteError(w, http.StatusBadRequest, "patientId and message are required", "")
		return
	}
	if req.Type == "" {
		req.Type = "update"
	}

	n.PatientUpdate(r.Context(), req.PatientID, req.Type, req.Message)
	n.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"patient_id": req.PatientID,
		"type":       req.Type,
	}).Info("Patient update published")

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Patient update sent",
	})
}
