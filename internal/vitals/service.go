// Package vitals records vital readings and raises health alerts for readings
// outside the safe range.
package vitals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// RecordRequest is a new reading as submitted by the user
type RecordRequest struct {
	Type  types.VitalType `json:"type"`
	Value string          `json:"value"`
	Unit  string          `json:"unit"`
	Notes string          `json:"notes"`
	Date  *time.Time      `json:"date"`
}

// Service stores readings and alerts on risky ones
type Service struct {
	repo     interfaces.VitalRepository
	notifier interfaces.BusinessNotifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a vitals service
func NewService(repo interfaces.VitalRepository, notifier interfaces.BusinessNotifier, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// Record persists a reading for userID and, when Assess flags it, sends the
// user a health alert. Alerting never fails the call.
func (s *Service) Record(ctx context.Context, userID string, req RecordRequest) (*types.Vital, error) {
	if !req.Type.Valid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid vital type: %q", req.Type), nil)
	}
	if strings.TrimSpace(req.Value) == "" || strings.TrimSpace(req.Unit) == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "value and unit are required", nil)
	}

	recordedAt := s.now().UTC()
	if req.Date != nil && !req.Date.IsZero() {
		recordedAt = req.Date.UTC()
	}

	vital := &types.Vital{
		ID:         uuid.New().String(),
		UserID:     userID,
		Type:       req.Type,
		Value:      req.Value,
		Unit:       req.Unit,
		Notes:      req.Notes,
		RecordedAt: recordedAt,
	}
	if err := s.repo.Create(ctx, vital); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Error adding vital", err)
	}

	if risk, alert := Assess(vital.Type, vital.Value); alert {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"vital_type": string(vital.Type),
			"value":      vital.Value,
		}).Warn("Risky vital reading")
		s.notifier.HealthAlert(ctx, userID, AlertMessage(risk))
	}

	return vital, nil
}

// List returns a user's readings, newest first
func (s *Service) List(ctx context.Context, userID string) ([]*types.Vital, error) {
	return s.repo.ListByUser(ctx, userID)
}

// History returns a patient's readings oldest first, the order charts plot them in
func (s *Service) History(ctx context.Context, patientID string) ([]*types.Vital, error) {
	vitals, err := s.repo.ListByUser(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(vitals)-1; i < j; i, j = i+1, j-1 {
		vitals[i], vitals[j] = vitals[j], vitals[i]
	}
	return vitals, nil
}

// Delete removes one of the requester's readings
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errVitalNotFound()
	}

	vital, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if vital.UserID != requesterID {
		s.logger.Audit(requesterID, "delete", "vital:"+id, false, nil)
		return types.NewAuthorizationError(types.ErrCodeForbidden, "Not authorized")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Audit(requesterID, "delete", "vital:"+id, true, nil)
	return nil
}
