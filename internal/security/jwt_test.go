package security_test

import (
	"testing"
	"time"

	"github.com/Rrens/energy-agent/internal/security"
)

const testSecret = "test-secret-key-with-32-chars!!"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute, "")

	accessToken, err := manager.GenerateAccessToken("user-42", "geo@example.com", "geoscience", "admins")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	if accessToken == "" {
		t.Error("access token is empty")
	}

	claims, err := manager.ValidateAccessToken(accessToken)
	if err != nil {
		t.Fatalf("failed to validate access token: %v", err)
	}

	if claims.UserID() != "user-42" {
		t.Errorf("user ID mismatch: got %v, want %v", claims.UserID(), "user-42")
	}

	if claims.Email != "geo@example.com" {
		t.Errorf("email mismatch: got %v", claims.Email)
	}

	if len(claims.Groups) != 2 {
		t.Errorf("groups count mismatch: got %d, want 2", len(claims.Groups))
	}

	if claims.Issuer != "energy-agent" {
		t.Errorf("issuer mismatch: got %v", claims.Issuer)
	}
}

func TestJWTManager_RequiresUserID(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute, "")

	if _, err := manager.GenerateAccessToken("", "x@example.com"); err == nil {
		t.Error("expected error for empty user id, got nil")
	}
}

func TestJWTManager_InvalidToken(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute, "")

	// Invalid token format
	_, err := manager.ValidateAccessToken("invalid-token")
	if err == nil {
		t.Error("expected error for invalid token, got nil")
	}

	// Empty token
	_, err = manager.ValidateAccessToken("")
	if err == nil {
		t.Error("expected error for empty token, got nil")
	}

	// Token signed with different secret
	otherManager := security.NewJWTManager("different-secret-key-32-chars!!", 15*time.Minute, "")
	token, _ := otherManager.GenerateAccessToken("user-1", "test@example.com")

	_, err = manager.ValidateAccessToken(token)
	if err == nil {
		t.Error("expected error for token signed with different secret, got nil")
	}

	// Token from another issuer
	foreign := security.NewJWTManager(testSecret, 15*time.Minute, "someone-else")
	token, _ = foreign.GenerateAccessToken("user-1", "test@example.com")

	_, err = manager.ValidateAccessToken(token)
	if err == nil {
		t.Error("expected error for token from another issuer, got nil")
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	manager := security.NewJWTManager(testSecret, -time.Minute, "")

	token, err := manager.GenerateAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestJWTManager_AccessTokenTTL(t *testing.T) {
	accessTTL := 30 * time.Minute
	manager := security.NewJWTManager(testSecret, accessTTL, "")

	if manager.AccessTokenTTL() != accessTTL {
		t.Errorf("access token TTL mismatch: got %v, want %v", manager.AccessTokenTTL(), accessTTL)
	}
}
