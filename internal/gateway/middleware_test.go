package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

func createTestMiddleware(t *testing.T) (*Middleware, *TokenValidator) {
	t.Helper()
	validator := NewTokenValidator("test-secret", "meditrack")
	return NewMiddleware(validator, NewRateLimiter(2, time.Minute), "http://localhost:5173", logger.NewNop()), validator
}

func TestCORSMiddleware(t *testing.T) {
	m, _ := createTestMiddleware(t)

	handler := m.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected configured origin, got %q", got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/notifications", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for OPTIONS request, got %d", w.Code)
	}
}

func TestAuthenticate(t *testing.T) {
	m, validator := createTestMiddleware(t)

	var seen *types.UserClaims
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// missing token
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON envelope: %v", err)
	}
	if body.Success || body.Message == "" {
		t.Errorf("Unexpected envelope: %+v", body)
	}

	// bad token
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad token, got %d", w.Code)
	}

	// header token
	token, _ := validator.IssueJWT(&types.UserClaims{UserID: "p-1", Role: types.RolePatient}, time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid token, got %d", w.Code)
	}
	if seen == nil || seen.UserID != "p-1" {
		t.Errorf("Expected claims for p-1 in context, got %+v", seen)
	}

	// query token, used by websocket clients
	seen = nil
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	if w.Code != http.StatusOK || seen == nil {
		t.Errorf("Expected query token to authenticate, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	m, _ := createTestMiddleware(t)

	handler := m.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	claims := &types.UserClaims{UserID: "p-1", Role: types.RolePatient}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
		req = req.WithContext(WithClaims(req.Context(), claims))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Expected first two requests allowed, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third request limited, got %d", codes[2])
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(types.RoleDoctor, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		claims *types.UserClaims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"patient", &types.UserClaims{UserID: "p-1", Role: types.RolePatient}, http.StatusForbidden},
		{"doctor", &types.UserClaims{UserID: "d-1", Role: types.RoleDoctor}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/tracking/update", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestWriteAppError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAppError(w, types.NewNotFoundError(types.ErrCodeNotFound, "Notification not found"))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	WriteAppError(w, types.NewInternalError(types.ErrCodeInternalError, "Server error", errAssert))
	var body ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusInternalServerError || body.Error != "" {
		t.Errorf("Expected 500 without internal detail, got %d %+v", w.Code, body)
	}
}

var errAssert = &types.AppError{Code: "X", Message: "connection reset"}
