package assistant

import (
	"sync"
	"time"
)

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSession is used when the client sends no session id
const DefaultSession = "default"

// Turn is one message in a conversation
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type sessionKey struct {
	userID    string
	sessionID string
}

// History keeps conversations per user and session in process memory.
// Each session holds at most maxTurns turns; older turns are discarded.
type History struct {
	mu       sync.RWMutex
	sessions map[sessionKey][]Turn
	maxTurns int
}

// NewHistory creates an empty history store
func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = 200
	}
	return &History{
		sessions: make(map[sessionKey][]Turn),
		maxTurns: maxTurns,
	}
}

// Recent returns up to n of the latest turns, oldest first
func (h *History) Recent(userID, sessionID string, n int) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	turns := h.sessions[sessionKey{userID, sessionID}]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]Turn(nil), turns...)
}

// Append adds turns to a session
func (h *History) Append(userID, sessionID string, turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := sessionKey{userID, sessionID}
	all := append(h.sessions[key], turns...)
	if len(all) > h.maxTurns {
		all = append([]Turn(nil), all[len(all)-h.maxTurns:]...)
	}
	h.sessions[key] = all
}
