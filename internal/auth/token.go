// Package auth mints and validates the HMAC-signed client tokens used by
// the real-time bridge's auth frame and by REST clients that want a
// pre-authenticated WebSocket handshake.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swarmdeck/core/internal/apierr"
)

const tokenTTL = time.Hour

// Payload is the signed envelope carried by a minted token.
type Payload struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Minter issues and validates tokens against a shared secret.
type Minter struct {
	secret []byte
}

// NewMinter builds a Minter from the configured ws_auth_secret.
func NewMinter(secret string) *Minter {
	return &Minter{secret: []byte(secret)}
}

// Mint produces a token string "base64url(payload).hex(signature)" for
// agentID (and optional sessionID), valid for tokenTTL from now.
func (m *Minter) Mint(agentID, sessionID string) (string, *Payload, error) {
	now := time.Now().UTC()
	payload := Payload{
		AgentID:   agentID,
		SessionID: sessionID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenTTL).Unix(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal token payload: %w", err)
	}
	sig := m.sign(body)
	token := base64.RawURLEncoding.EncodeToString(body) + "." + hex.EncodeToString(sig)
	return token, &payload, nil
}

// Validate verifies token's signature and expiry, returning its payload.
// Expired tokens surface as an apierr.Error with Kind == apierr.KindAuth
// and code "AUTH_EXPIRED".
func (m *Minter) Validate(token string) (*Payload, error) {
	body, sigHex, ok := splitToken(token)
	if !ok {
		return nil, apierr.Auth("AUTH_MALFORMED", "malformed token")
	}

	encoded, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, apierr.Auth("AUTH_MALFORMED", "malformed token payload")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, apierr.Auth("AUTH_MALFORMED", "malformed token signature")
	}

	expected := m.sign(encoded)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return nil, apierr.Auth("AUTH_INVALID", "signature mismatch")
	}

	var payload Payload
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return nil, apierr.Auth("AUTH_MALFORMED", "malformed token payload")
	}
	if time.Now().UTC().Unix() > payload.ExpiresAt {
		return nil, apierr.Auth("AUTH_EXPIRED", "token expired")
	}
	return &payload, nil
}

func (m *Minter) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func splitToken(token string) (body, sig string, ok bool) {
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			return token[:i], token[i+1:], true
		}
	}
	return "", "", false
}
