package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

type ingestActionRequest struct {
	ProjectPath string            `json:"project_path,omitempty"`
	SessionID   string            `json:"session_id"`
	SubtaskID   string            `json:"subtask_id,omitempty"`
	ToolName    string            `json:"tool_name"`
	ToolType    string            `json:"tool_type,omitempty"`
	Input       string            `json:"input,omitempty"`
	Output      string            `json:"output,omitempty"`
	FilePaths   []string          `json:"file_paths,omitempty"`
	ExitCode    int               `json:"exit_code"`
	DurationMs  int               `json:"duration_ms,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (req *ingestActionRequest) Validate() error {
	details := map[string]string{}
	if req.SessionID == "" {
		details["session_id"] = "required"
	}
	if req.ToolName == "" {
		details["tool_name"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

// handleIngestAction is the hot fire-and-forget write path: hook clients
// are expected to send a short timeout and ignore 5xx.
func (s *Server) handleIngestAction(w http.ResponseWriter, r *http.Request) {
	var req ingestActionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.store.IngestAction(r.Context(), store.IngestActionInput{
		ProjectPath: req.ProjectPath,
		SessionID:   req.SessionID,
		SubtaskID:   req.SubtaskID,
		ToolName:    req.ToolName,
		ToolType:    store.ToolType(req.ToolType),
		Input:       req.Input,
		Output:      req.Output,
		FilePaths:   req.FilePaths,
		ExitCode:    req.ExitCode,
		DurationMs:  req.DurationMs,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	f := store.ActionFilter{
		SessionID: r.URL.Query().Get("session_id"),
		ToolName:  r.URL.Query().Get("tool_name"),
		Limit:     limit,
		Offset:    offset,
	}
	actions, err := s.store.ListActions(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(actions), "limit": limit, "offset": offset, "actions": actions})
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.GetAction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAction(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeleteActionsBySession(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.DeleteActionsBySession(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

func (s *Server) handleActionsHourly(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.store.ActionsHourly(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}
