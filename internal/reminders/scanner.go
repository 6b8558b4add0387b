// Package reminders fires medicine reminders for due schedule slots.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/types"
)

// ReminderSubject is the email subject of every reminder
const ReminderSubject = "Medicine Reminder - MediTrack AI"

const (
	defaultInterval        = time.Minute
	defaultDeliveryTimeout = 10 * time.Second
)

// ScanReport summarises one scan
type ScanReport struct {
	Checked   int
	Due       int
	Delivered int
	Skipped   int
	Failed    int
}

// Scanner periodically looks for schedule slots due at the current minute
type Scanner struct {
	schedules  interfaces.ScheduleRepository
	dispatcher interfaces.Dispatcher
	notifier   interfaces.BusinessNotifier
	metrics    *monitoring.MetricsCollector
	logger     *logger.Logger

	location        *time.Location
	interval        time.Duration
	deliveryTimeout time.Duration
	now             func() time.Time

	scanMu  sync.Mutex
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScanner creates a scanner. An unknown timezone is an error.
func NewScanner(cfg config.RemindersConfig, schedules interfaces.ScheduleRepository, dispatcher interfaces.Dispatcher,
	notifier interfaces.BusinessNotifier, metrics *monitoring.MetricsCollector, log *logger.Logger) (*Scanner, error) {

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid reminders timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	return &Scanner{
		schedules:       schedules,
		dispatcher:      dispatcher,
		notifier:        notifier,
		metrics:         metrics,
		logger:          log,
		location:        loc,
		interval:        interval,
		deliveryTimeout: timeout,
		now:             time.Now,
	}, nil
}

// Start runs one scan immediately and then one per interval until Stop or
// until ctx is cancelled
func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.logger.WithComponent("reminders").WithField("interval", s.interval.String()).Info("Reminder scanner started")

	go func() {
		defer close(doneCh)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.scanOnce(ctx)
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scanOnce(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight scan to finish
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	s.logger.WithComponent("reminders").Info("Reminder scanner stopped")
}

func (s *Scanner) scanOnce(ctx context.Context) {
	report, err := s.Scan(ctx, s.now())
	if err != nil {
		s.logger.WithComponent("reminders").WithError(err).Error("Reminder scan failed")
		return
	}
	if report.Due > 0 {
		s.logger.WithComponent("reminders").WithFields(map[string]interface{}{
			"checked":   report.Checked,
			"due":       report.Due,
			"delivered": report.Delivered,
			"skipped":   report.Skipped,
			"failed":    report.Failed,
		}).Info("Reminder scan completed")
	}
}

// Scan fires every reminder due at now's minute. A slot fires at most once
// per day: it is claimed in storage before anything is sent, and only the
// claimant delivers. Failures are counted per schedule and never stop the scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (ScanReport, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordReminderScan()
	}

	var report ScanReport
	now = now.In(s.location)
	slot := now.Format(types.SlotLayout)
	day := types.DayStart(now)

	schedules, err := s.schedules.ActiveSchedules(ctx, now)
	if err != nil {
		return report, fmt.Errorf("failed to load schedules: %w", err)
	}

	for _, m := range schedules {
		report.Checked++
		if !m.HasSlot(slot) {
			continue
		}
		report.Due++

		if m.Fired(day, slot) {
			report.Skipped++
			s.record("already_sent")
			continue
		}

		claimed, err := s.schedules.ClaimSlot(ctx, m.ID, day, slot)
		if err != nil {
			report.Failed++
			s.record("claim_failed")
			s.logger.WithComponent("reminders").WithField("medicine_id", m.ID).WithError(err).Error("Failed to claim reminder slot")
			continue
		}
		if !claimed {
			report.Skipped++
			s.record("already_sent")
			continue
		}

		if s.fire(ctx, m, slot) {
			report.Delivered++
		} else {
			report.Failed++
		}
	}

	return report, nil
}

// fire sends the reminder over email and SMS, then records and publishes it.
// The realtime reminder goes out even when delivery fails.
func (s *Scanner) fire(ctx context.Context, m *types.MedicineSchedule, slot string) bool {
	entry := s.logger.WithComponent("reminders").WithFields(map[string]interface{}{
		"medicine_id": m.ID,
		"patient_id":  m.PatientID,
		"slot":        slot,
	})

	delivered := true
	dctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	err := s.dispatcher.Deliver(dctx, interfaces.DeliveryMessage{
		To:      m.Patient,
		Subject: ReminderSubject,
		Body:    m.ReminderText(),
	})
	cancel()
	if err != nil {
		delivered = false
		s.record("delivery_failed")
		entry.WithError(err).Warn("Reminder delivery failed")
	}

	s.notifier.MedicineReminder(ctx, m.PatientID, types.MedicineReminder{
		MedicineID: m.ID,
		Name:       m.Name,
		Dosage:     m.Dosage,
		Time:       slot,
	})

	if delivered {
		s.record("delivered")
		entry.WithField("patient_name", m.Patient.Name).Info("Reminder sent")
	}
	return delivered
}

func (s *Scanner) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordReminder(outcome)
	}
}
