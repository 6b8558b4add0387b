// Package delivery sends reminder messages over email and SMS.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meditrack/coordination/pkg/circuitbreaker"
	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
)

// DefaultTimeout bounds a single channel attempt
const DefaultTimeout = 10 * time.Second

type route struct {
	channel string
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
}

// Dispatcher implements interfaces.Dispatcher. Each channel is attempted once,
// under its own timeout and circuit breaker.
type Dispatcher struct {
	email   *route
	sms     *route
	timeout time.Duration
	metrics *monitoring.MetricsCollector
	logger  *logger.Logger
	tracer  trace.Tracer
}

// NewDispatcher creates a dispatcher. A nil sender disables that channel.
func NewDispatcher(email, sms Sender, timeout time.Duration, metrics *monitoring.MetricsCollector, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{
		timeout: timeout,
		metrics: metrics,
		logger:  log,
		tracer:  otel.Tracer("delivery"),
	}
	if email != nil {
		d.email = &route{ChannelEmail, email, circuitbreaker.New(circuitbreaker.DefaultConfig("delivery-email"), log)}
	}
	if sms != nil {
		d.sms = &route{ChannelSMS, sms, circuitbreaker.New(circuitbreaker.DefaultConfig("delivery-sms"), log)}
	}
	return d
}

// NewFromConfig picks senders for the configured mode. In live mode a channel
// without provider settings falls back to logging.
func NewFromConfig(cfg config.DeliveryConfig, timeout time.Duration, metrics *monitoring.MetricsCollector, log *logger.Logger) *Dispatcher {
	var email, sms Sender = NewLogSender(ChannelEmail, log), NewLogSender(ChannelSMS, log)

	if cfg.Mode == config.DeliveryModeLive {
		if cfg.SMTP.Host != "" {
			email = NewSMTPSender(cfg.SMTP)
		} else {
			log.WithComponent("delivery").Warn("SMTP host not configured, email falls back to log mode")
		}
		if cfg.Twilio.AccountSID != "" {
			sms = NewTwilioSender(cfg.Twilio, nil)
		} else {
			log.WithComponent("delivery").Warn("Twilio account not configured, SMS falls back to log mode")
		}
	}

	return NewDispatcher(email, sms, timeout, metrics, log)
}

// Deliver attempts email (when the contact has an address) and SMS (when it
// has a phone number) concurrently and returns their joined errors.
func (d *Dispatcher) Deliver(ctx context.Context, msg interfaces.DeliveryMessage) error {
	ctx, span := d.tracer.Start(ctx, "delivery.deliver",
		trace.WithAttributes(attribute.String("recipient_id", msg.To.UserID)))
	defer span.End()

	type attempt struct {
		r    *route
		addr string
	}
	var attempts []attempt
	if d.email != nil && msg.To.Email != "" {
		attempts = append(attempts, attempt{d.email, msg.To.Email})
	}
	if d.sms != nil && msg.To.Phone != "" {
		attempts = append(attempts, attempt{d.sms, msg.To.Phone})
	}

	errs := make([]error, len(attempts))
	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			errs[i] = d.send(ctx, a.r, a.addr, msg.Subject, msg.Body)
		}(i, a)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (d *Dispatcher) send(ctx context.Context, r *route, addr, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.breaker.Do(ctx, func() error {
			return r.sender.Send(ctx, addr, subject, body)
		})
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		err = fmt.Errorf("%s delivery failed: %w", r.channel, err)
		if d.metrics != nil {
			d.metrics.RecordDeliveryFailure(r.channel)
		}
	}
	d.logger.Delivery(r.channel, addr, err)
	return err
}
