package interfaces

import (
	"time"

	"github.com/meditrack/coordination/pkg/types"
)

// TokenValidator defines the interface for token validation
type TokenValidator interface {
	ValidateJWT(token string) (*types.UserClaims, error)
	IssueJWT(claims *types.UserClaims, ttl time.Duration) (string, error)
}
