package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

type createRequestRequest struct {
	ProjectID  string            `json:"project_id"`
	SessionID  string            `json:"session_id"`
	Prompt     string            `json:"prompt"`
	PromptType string            `json:"prompt_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (req *createRequestRequest) Validate() error {
	details := map[string]string{}
	if req.ProjectID == "" {
		details["project_id"] = "required"
	}
	if req.SessionID == "" {
		details["session_id"] = "required"
	}
	if req.Prompt == "" {
		details["prompt"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	promptType := store.PromptType(req.PromptType)
	if promptType == "" {
		promptType = store.PromptOther
	}
	out, err := s.store.CreateRequest(r.Context(), req.ProjectID, req.SessionID, req.Prompt, promptType, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	f := store.RequestFilter{
		ProjectID: r.URL.Query().Get("project_id"),
		SessionID: r.URL.Query().Get("session_id"),
		Status:    store.RequestStatus(r.URL.Query().Get("status")),
		Limit:     limit,
		Offset:    offset,
	}
	reqs, err := s.store.ListRequests(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(reqs), "limit": limit, "offset": offset, "requests": reqs})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.GetRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type patchRequestRequest struct {
	Status   *string           `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handlePatchRequest(w http.ResponseWriter, r *http.Request) {
	var req patchRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var patch store.RequestPatch
	if req.Status != nil {
		st := store.RequestStatus(*req.Status)
		patch.Status = &st
	}
	patch.Metadata = req.Metadata

	out, err := s.store.PatchRequest(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRequest(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}
