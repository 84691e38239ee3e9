package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/brief"
)

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ac, err := s.store.GetAgentContext(r.Context(), mux.Vars(r)["agent_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ac)
}

type generateContextRequest struct {
	SessionID       string `json:"session_id"`
	AgentID         string `json:"agent_id"`
	AgentType       string `json:"agent_type,omitempty"`
	MaxTokens       int    `json:"max_tokens,omitempty"`
	HistoryLimit    int    `json:"history_limit,omitempty"`
	IncludeHistory  bool   `json:"include_history,omitempty"`
	IncludeMessages bool   `json:"include_messages,omitempty"`
	IncludeBlocking bool   `json:"include_blocking,omitempty"`
}

func (req *generateContextRequest) Validate() error {
	details := map[string]string{}
	if req.SessionID == "" {
		details["session_id"] = "required"
	}
	if req.AgentID == "" {
		details["agent_id"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleGenerateContext(w http.ResponseWriter, r *http.Request) {
	var req generateContextRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := brief.Generate(r.Context(), s.store, brief.Request{
		SessionID:       req.SessionID,
		AgentID:         req.AgentID,
		AgentType:       req.AgentType,
		MaxTokens:       req.MaxTokens,
		HistoryLimit:    req.HistoryLimit,
		IncludeHistory:  req.IncludeHistory,
		IncludeMessages: req.IncludeMessages,
		IncludeBlocking: req.IncludeBlocking,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
