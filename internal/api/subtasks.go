package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

type createSubtaskRequest struct {
	TaskID      string   `json:"task_id"`
	AgentType   string   `json:"agent_type,omitempty"`
	AgentID     string   `json:"agent_id,omitempty"`
	Description string   `json:"description"`
	BlockedBy   []string `json:"blocked_by,omitempty"`
}

func (req *createSubtaskRequest) Validate() error {
	details := map[string]string{}
	if req.TaskID == "" {
		details["task_id"] = "required"
	}
	if req.Description == "" {
		details["description"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleCreateSubtask(w http.ResponseWriter, r *http.Request) {
	var req createSubtaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.store.CreateSubtask(r.Context(), req.TaskID, req.AgentType, req.AgentID, req.Description, req.BlockedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListSubtasks(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	f := store.SubtaskFilter{
		TaskID:  r.URL.Query().Get("task_id"),
		AgentID: r.URL.Query().Get("agent_id"),
		Status:  store.SubtaskStatus(r.URL.Query().Get("status")),
		Limit:   limit,
		Offset:  offset,
	}
	subtasks, err := s.store.ListSubtasks(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(subtasks), "limit": limit, "offset": offset, "subtasks": subtasks})
}

func (s *Server) handleGetSubtask(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.GetSubtask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type patchSubtaskRequest struct {
	Status      *string        `json:"status,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	ContextSnap map[string]any `json:"context_snapshot,omitempty"`
}

func (s *Server) handlePatchSubtask(w http.ResponseWriter, r *http.Request) {
	var req patchSubtaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var patch store.SubtaskPatch
	if req.Status != nil {
		st := store.SubtaskStatus(*req.Status)
		patch.Status = &st
	}
	patch.Result = req.Result
	patch.ContextSnap = req.ContextSnap

	out, err := s.store.PatchSubtask(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSubtask(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}
