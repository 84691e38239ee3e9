package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/brief"
	"github.com/swarmdeck/core/internal/store"
)

type compactSaveRequest struct {
	ProjectID      string           `json:"project_id"`
	SessionID      string           `json:"session_id"`
	Trigger        string           `json:"trigger,omitempty"`
	ContextSummary string           `json:"context_summary"`
	ActiveTasks    []map[string]any `json:"active_tasks,omitempty"`
	ModifiedFiles  []string         `json:"modified_files,omitempty"`
	KeyDecisions   []string         `json:"key_decisions,omitempty"`
	AgentStates    []map[string]any `json:"agent_states,omitempty"`
}

func (req *compactSaveRequest) Validate() error {
	details := map[string]string{}
	if req.SessionID == "" {
		details["session_id"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleCompactSave(w http.ResponseWriter, r *http.Request) {
	var req compactSaveRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	projectID := req.ProjectID
	if projectID == "" {
		session, err := s.store.GetSession(r.Context(), req.SessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		if session.ProjectID == nil {
			writeError(w, apierr.Validation("session has no project; project_id is required", map[string]string{"project_id": "required"}))
			return
		}
		projectID = *session.ProjectID
	}

	ac, err := s.store.SaveCompactSnapshot(r.Context(), projectID, req.SessionID, store.CompactSnapshot{
		SessionID:      req.SessionID,
		Trigger:        req.Trigger,
		ContextSummary: req.ContextSummary,
		ActiveTasks:    req.ActiveTasks,
		ModifiedFiles:  req.ModifiedFiles,
		KeyDecisions:   req.KeyDecisions,
		AgentStates:    req.AgentStates,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ac)
}

type compactRestoreRequest struct {
	SessionID      string `json:"session_id"`
	AgentID        string `json:"agent_id"`
	AgentType      string `json:"agent_type,omitempty"`
	CompactSummary string `json:"compact_summary,omitempty"`
	MaxTokens      int    `json:"max_tokens,omitempty"`
}

func (req *compactRestoreRequest) Validate() error {
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

// handleCompactRestore hands a resuming agent a fresh brief prefixed with
// the summary it saved right before compaction, then marks the session
// as having been compacted so GET /compact/status reflects it.
func (s *Server) handleCompactRestore(w http.ResponseWriter, r *http.Request) {
	var req compactRestoreRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := s.store.GetCompactSnapshot(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	summary := req.CompactSummary
	if summary == "" {
		summary, _ = snapshot.RoleContext["context_summary"].(string)
	}

	result, err := brief.Generate(r.Context(), s.store, brief.Request{
		SessionID:             req.SessionID,
		AgentID:               req.AgentID,
		AgentType:             req.AgentType,
		MaxTokens:             req.MaxTokens,
		IncludeHistory:        true,
		IncludeMessages:       true,
		IncludeBlocking:       true,
		PrependSummary:        summary,
		RestoredActiveTasks:   extractMapSlice(snapshot.RoleContext["active_tasks"]),
		RestoredModifiedFiles: extractStringSlice(snapshot.RoleContext["modified_files"]),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.MarkSessionCompacted(r.Context(), req.SessionID, req.AgentID, summary); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompactStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.GetCompactStatus(r.Context(), mux.Vars(r)["sid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCompactSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.store.GetCompactSnapshot(r.Context(), mux.Vars(r)["sid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// extractMapSlice recovers a []map[string]any from a value that came back
// out of JSONB by way of map[string]any (so a []T field decodes as
// []any of map[string]any, not the original type).
func extractMapSlice(raw any) []map[string]any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// extractStringSlice recovers a []string from the same []any decoding a
// JSONB string array goes through.
func extractStringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
