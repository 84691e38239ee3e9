package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

type publishMessageRequest struct {
	FromAgent string         `json:"from_agent"`
	ToAgent   *string        `json:"to_agent,omitempty"`
	Topic     string         `json:"topic"`
	Payload   map[string]any `json:"payload,omitempty"`
	Priority  int            `json:"priority,omitempty"`
	TTLSec    int            `json:"ttl_seconds,omitempty"`
}

func (req *publishMessageRequest) Validate() error {
	details := map[string]string{}
	if req.FromAgent == "" {
		details["from_agent"] = "required"
	}
	if req.Topic == "" {
		details["topic"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handlePublishMessage(w http.ResponseWriter, r *http.Request) {
	var req publishMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.store.PublishMessage(r.Context(), req.FromAgent, req.ToAgent, store.MessageTopic(req.Topic), req.Payload, req.Priority, req.TTLSec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	msgs, err := s.store.ListMessages(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(msgs), "limit": limit, "offset": offset, "messages": msgs})
}

func (s *Server) handleGetMessagesForAgent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.MessageFilter{Topic: q.Get("topic")}
	if v := q.Get("since"); v != "" {
		t, err := parseRFC3339(v)
		if err != nil {
			writeError(w, apierr.Validation("invalid since timestamp", map[string]string{"since": "must be RFC3339"}))
			return
		}
		f.Since = &t
	}
	msgs, err := s.store.GetMessagesForAgent(r.Context(), mux.Vars(r)["agent_id"], f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(msgs), "messages": msgs})
}
