package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

func (s *Server) handleRoutingSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keywordsRaw := q.Get("keywords")
	if keywordsRaw == "" {
		writeError(w, apierr.Validation("missing required fields", map[string]string{"keywords": "required"}))
		return
	}
	keywords := strings.Split(keywordsRaw, ",")

	minScore := 0.0
	if v := q.Get("min_score"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			minScore = parsed
		}
	}
	limit := 10
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	suggestions, err := s.store.SuggestTools(r.Context(), keywords, q.Get("tool_type"), minScore, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"compat":      store.CompatOutput(suggestions),
	})
}

func (s *Server) handleRoutingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetRoutingStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type routingFeedbackRequest struct {
	ToolName string   `json:"tool_name"`
	Keywords []string `json:"keywords"`
	Chosen   bool     `json:"chosen"`
}

func (req *routingFeedbackRequest) Validate() error {
	details := map[string]string{}
	if req.ToolName == "" {
		details["tool_name"] = "required"
	}
	if len(req.Keywords) == 0 {
		details["keywords"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleRoutingFeedback(w http.ResponseWriter, r *http.Request) {
	var req routingFeedbackRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.ApplyRoutingFeedback(r.Context(), req.ToolName, req.Keywords, req.Chosen); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
