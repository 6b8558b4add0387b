package gateway

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meditrack/coordination/pkg/types"
)

func TestTokenValidator_ValidateJWT(t *testing.T) {
	validator := NewTokenValidator("test-secret", "meditrack")

	token, err := validator.IssueJWT(&types.UserClaims{UserID: "doc-1", Name: "Dr. Rao", Role: types.RoleDoctor}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	claims, err := validator.ValidateJWT(token)
	if err != nil {
		t.Fatalf("Failed to validate valid token: %v", err)
	}

	if claims.UserID != "doc-1" {
		t.Errorf("Expected UserID 'doc-1', got '%s'", claims.UserID)
	}
	if claims.Name != "Dr. Rao" {
		t.Errorf("Expected Name 'Dr. Rao', got '%s'", claims.Name)
	}
	if !claims.IsDoctor() {
		t.Errorf("Expected doctor role, got '%s'", claims.Role)
	}
}

func TestTokenValidator_ValidateJWT_InvalidToken(t *testing.T) {
	validator := NewTokenValidator("test-secret", "meditrack")

	if _, err := validator.ValidateJWT("invalid-token"); err == nil {
		t.Error("Expected error for invalid token")
	}

	other := NewTokenValidator("wrong-secret", "meditrack")
	token, err := other.IssueJWT(&types.UserClaims{UserID: "p-1", Role: types.RolePatient}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if _, err := validator.ValidateJWT(token); err == nil {
		t.Error("Expected error for token signed with a different secret")
	}
}

func TestTokenValidator_ValidateJWT_Expired(t *testing.T) {
	validator := NewTokenValidator("test-secret", "meditrack")

	token, err := validator.IssueJWT(&types.UserClaims{UserID: "p-1", Role: types.RolePatient}, -time.Minute)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if _, err := validator.ValidateJWT(token); err == nil {
		t.Error("Expected error for expired token")
	}
}

func TestTokenValidator_ValidateJWT_UnknownRole(t *testing.T) {
	secret := "test-secret"
	validator := NewTokenValidator(secret, "meditrack")

	claims := &JWTClaims{
		UserID: "admin-1",
		Role:   "administrator",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}

	if _, err := validator.ValidateJWT(token); err == nil {
		t.Error("Expected error for unknown role")
	}
}

func TestTokenValidator_ValidateJWT_RejectsNoneAlgorithm(t *testing.T) {
	validator := NewTokenValidator("test-secret", "meditrack")

	claims := &JWTClaims{UserID: "p-1", Role: "patient"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}

	if _, err := validator.ValidateJWT(token); err == nil {
		t.Error("Expected error for unsigned token")
	}
}
