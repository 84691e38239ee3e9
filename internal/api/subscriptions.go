package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
)

type subscribeRequest struct {
	AgentID     string `json:"agent_id"`
	Topic       string `json:"topic"`
	CallbackURL string `json:"callback_url,omitempty"`
}

func (req *subscribeRequest) Validate() error {
	details := map[string]string{}
	if req.AgentID == "" {
		details["agent_id"] = "required"
	}
	if req.Topic == "" {
		details["topic"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := s.store.UpsertSubscription(r.Context(), req.AgentID, req.Topic, req.CallbackURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscriptions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(subs), "subscriptions": subs})
}

func (s *Server) handleListSubscriptionsForAgent(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscriptionsForAgent(r.Context(), mux.Vars(r)["agent_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(subs), "subscriptions": subs})
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSubscription(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

type unsubscribeRequest struct {
	AgentID string `json:"agent_id"`
	Topic   string `json:"topic"`
}

func (req *unsubscribeRequest) Validate() error {
	details := map[string]string{}
	if req.AgentID == "" {
		details["agent_id"] = "required"
	}
	if req.Topic == "" {
		details["topic"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Unsubscribe(r.Context(), req.AgentID, req.Topic); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
