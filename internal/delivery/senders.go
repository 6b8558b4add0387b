package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/logger"
)

// Channel names used in logs and metrics
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Sender transmits one message to one address on a single channel.
// Send must return once ctx is done.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends plain-text mail through an SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP sender from configuration
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPSender{dialer: d, from: from}
}

// Send dials the relay for each message. gomail has no context support, so
// the dial runs in its own goroutine and is abandoned when ctx ends.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TwilioSender sends SMS through the Twilio Messages REST endpoint
type TwilioSender struct {
	client     *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// NewTwilioSender creates an SMS sender. An empty base URL uses Twilio's public API.
func NewTwilioSender(cfg config.TwilioConfig, client *http.Client) *TwilioSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	return &TwilioSender{
		client:     client,
		baseURL:    baseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
	}
}

// Send posts the body as an SMS. subject is not used.
func (s *TwilioSender) Send(ctx context.Context, to, subject, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	return nil
}

// LogSender writes the message to the log instead of sending it
type LogSender struct {
	channel string
	logger  *logger.Logger
}

// NewLogSender creates a sender for development environments
func NewLogSender(channel string, log *logger.Logger) *LogSender {
	return &LogSender{channel: channel, logger: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.WithComponent("delivery").WithFields(map[string]interface{}{
		"channel": s.channel,
		"to":      to,
		"subject": subject,
		"body":    body,
	}).Info("Delivery in log mode, message not sent")
	return nil
}
