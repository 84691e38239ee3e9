package api

import (
	"net/http"

	"github.com/swarmdeck/core/internal/apierr"
)

type mintTokenRequest struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (req *mintTokenRequest) Validate() error {
	if req.AgentID == "" {
		return apierr.Validation("missing required fields", map[string]string{"agent_id": "required"})
	}
	return nil
}

// handleMintToken issues the HMAC-signed token a client presents in the
// real-time bridge's auth frame. Rate-limited per agent_id to blunt
// credential-stuffing against the signing secret.
func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !s.limiter.Allow(req.AgentID) {
		writeError(w, apierr.Rate("too many token requests"))
		return
	}
	token, payload, err := s.minter.Mint(req.AgentID, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "expires_at": payload.ExpiresAt})
}
