package auth

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/swarmdeck/core/internal/apierr"
)

func TestMintAndValidateRoundTrip(t *testing.T) {
	m := NewMinter("super-secret")

	token, payload, err := m.Mint("agent-1", "session-1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if payload.AgentID != "agent-1" || payload.SessionID != "session-1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	got, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.AgentID != "agent-1" || got.SessionID != "session-1" {
		t.Errorf("validated payload mismatch: %+v", got)
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	m := NewMinter("super-secret")
	token, _, err := m.Mint("agent-1", "")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	idx := strings.LastIndex(token, ".")
	if idx < 0 {
		t.Fatalf("token has no signature separator: %q", token)
	}
	tampered := token[:idx] + ".0000000000000000000000000000000000000000000000000000000000000000"

	if _, err := m.Validate(tampered); err == nil {
		t.Fatal("expected tampered token to fail validation")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewMinter("secret-a").Mint("agent-1", "")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := NewMinter("secret-b").Validate(token); err == nil {
		t.Fatal("expected validation against a different secret to fail")
	}
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	m := NewMinter("super-secret")
	if _, err := m.Validate("not-a-valid-token"); err == nil {
		t.Fatal("expected malformed token without a separator to fail")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewMinter("super-secret")

	payload := Payload{
		AgentID:   "agent-1",
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal fixture payload: %v", err)
	}
	sig := m.sign(body)
	expired := base64.RawURLEncoding.EncodeToString(body) + "." + hex.EncodeToString(sig)

	_, err = m.Validate(expired)
	if err == nil {
		t.Fatal("expected expired token to fail validation")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Code != "AUTH_EXPIRED" {
		t.Errorf("expected AUTH_EXPIRED error, got %v", err)
	}
}
