package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

type claimsKey struct{}

// WithClaims stores the authenticated principal in ctx
func WithClaims(ctx context.Context, claims *types.UserClaims) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	return context.WithValue(ctx, logger.UserIDKey, claims.UserID)
}

// ClaimsFromContext returns the principal set by the auth middleware
func ClaimsFromContext(ctx context.Context) (*types.UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*types.UserClaims)
	return claims, ok && claims != nil
}

// TokenFromRequest reads a Bearer header, falling back to the token query
// parameter browsers use for websocket handshakes
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Middleware bundles the request filters applied in front of every handler
type Middleware struct {
	validator     interfaces.TokenValidator
	limiter       *RateLimiter
	logger        *logger.Logger
	allowedOrigin string
}

// NewMiddleware creates the gateway middleware. limiter may be nil.
func NewMiddleware(validator interfaces.TokenValidator, limiter *RateLimiter, allowedOrigin string, log *logger.Logger) *Middleware {
	return &Middleware{
		validator:     validator,
		limiter:       limiter,
		logger:        log,
		allowedOrigin: allowedOrigin,
	}
}

// CORS handles CORS headers for the configured frontend origin
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", m.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders adds security headers
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// Authenticate validates the token and puts the claims into the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
			return
		}

		claims, err := m.validator.ValidateJWT(token)
		if err != nil {
			m.logger.WithComponent("gateway").WithError(err).Warn("Token validation failed")
			WriteError(w, http.StatusUnauthorized, "Not authorized, token failed", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RateLimit rejects users that exceed the per-minute request budget
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if ok && !m.limiter.Allow(claims.UserID) {
			m.logger.WithUserID(claims.UserID).Warn("Rate limit exceeded")
			WriteError(w, http.StatusTooManyRequests, "Too many requests", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only principals with role
func RequireRole(role types.UserRole, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, "Not authorized", "")
			return
		}
		if claims.Role != role {
			WriteError(w, http.StatusForbidden, roleDeniedMessage(role), "")
			return
		}
		next(w, r)
	}
}

func roleDeniedMessage(role types.UserRole) string {
	switch role {
	case types.RoleDoctor:
		return "Access denied. Doctors only."
	case types.RolePatient:
		return "Access denied. Patients only."
	}
	return "Access denied."
}
