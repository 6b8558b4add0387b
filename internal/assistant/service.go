// Package assistant answers health questions through a generative model,
// keeping short per-session conversation history.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

// FallbackReply is returned when the model produces nothing
const FallbackReply = "I apologize, but I am unable to generate a response at this time. Please try again later or consult a healthcare professional."

// DefaultHistoryWindow is how many earlier turns are sent with each message
const DefaultHistoryWindow = 10

// Generator produces model replies
type Generator interface {
	Chat(ctx context.Context, history []Turn, message string) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

// Reply is the answer to one user message
type Reply struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// Service runs the chat flow
type Service struct {
	generator Generator
	history   *History
	window    int
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates an assistant service. window is the number of earlier
// turns sent to the model; zero uses DefaultHistoryWindow.
func NewService(generator Generator, history *History, window int, log *logger.Logger) *Service {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Service{
		generator: generator,
		history:   history,
		window:    window,
		logger:    log,
		now:       time.Now,
	}
}

// Reply answers message in the context of the session's recent turns. A failed
// or empty chat call is retried once without history; if that also yields
// nothing the fixed FallbackReply is used. Model failures never fail the call.
func (s *Service) Reply(ctx context.Context, userID, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Message is required", nil)
	}
	if sessionID == "" {
		sessionID = DefaultSession
	}

	log := s.logger.WithContext(ctx).WithField("session_id", sessionID)

	answer, err := s.generator.Chat(ctx, s.history.Recent(userID, sessionID, s.window), message)
	if err != nil {
		log.WithError(err).Warn("Assistant chat failed")
	}

	if answer == "" {
		log.Info("Retrying assistant without history")
		answer, err = s.generator.Generate(ctx, message)
		if err != nil {
			log.WithError(err).Warn("Assistant fallback generation failed")
		}
	}

	if answer == "" {
		answer = FallbackReply
	}

	now := s.now().UTC()
	s.history.Append(userID, sessionID,
		Turn{Role: RoleUser, Content: message, Timestamp: now},
		Turn{Role: RoleAssistant, Content: answer, Timestamp: now},
	)

	return &Reply{Message: answer, SessionID: sessionID}, nil
}

// Conversation returns every stored turn of a session, oldest first
func (s *Service) Conversation(userID, sessionID string) []Turn {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	return s.history.Recent(userID, sessionID, 0)
}
