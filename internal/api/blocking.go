package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
)

type createBlockingRequest struct {
	Blocker string `json:"blocker"`
	Blocked string `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

func (req *createBlockingRequest) Validate() error {
	details := map[string]string{}
	if req.Blocker == "" {
		details["blocker"] = "required"
	}
	if req.Blocked == "" {
		details["blocked"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleCreateBlocking(w http.ResponseWriter, r *http.Request) {
	var req createBlockingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	blocking, err := s.store.UpsertBlocking(r.Context(), req.Blocker, req.Blocked, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blocking)
}

func (s *Server) handleBlockingCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	blocker, blocked := q.Get("blocker"), q.Get("blocked")
	if blocker == "" || blocked == "" {
		writeError(w, apierr.Validation("missing required fields", map[string]string{"blocker": "required", "blocked": "required"}))
		return
	}
	isBlocked, err := s.store.IsBlocked(r.Context(), blocker, blocked)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocked": isBlocked})
}

func (s *Server) handleGetBlockings(w http.ResponseWriter, r *http.Request) {
	blockings, err := s.store.GetBlockingsForAgent(r.Context(), mux.Vars(r)["agent_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(blockings), "blockings": blockings})
}

func (s *Server) handleDeleteBlocking(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.DeleteBlockingsForBlocked(r.Context(), mux.Vars(r)["blocked_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

type unblockRequest struct {
	Blocker string `json:"blocker"`
	Blocked string `json:"blocked"`
}

func (req *unblockRequest) Validate() error {
	details := map[string]string{}
	if req.Blocker == "" {
		details["blocker"] = "required"
	}
	if req.Blocked == "" {
		details["blocked"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	var req unblockRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteBlocking(r.Context(), req.Blocker, req.Blocked); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
