package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

type createTaskRequest struct {
	RequestID  string `json:"request_id"`
	Name       string `json:"name"`
	WaveNumber *int   `json:"wave_number,omitempty"`
}

func (req *createTaskRequest) Validate() error {
	details := map[string]string{}
	if req.RequestID == "" {
		details["request_id"] = "required"
	}
	if req.Name == "" {
		details["name"] = "required"
	}
	if len(details) > 0 {
		return apierr.Validation("missing required fields", details)
	}
	return nil
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	waveNumber := -1
	if req.WaveNumber != nil {
		waveNumber = *req.WaveNumber
	}
	out, err := s.store.CreateTask(r.Context(), req.RequestID, req.Name, waveNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	f := store.TaskFilter{
		RequestID: r.URL.Query().Get("request_id"),
		Status:    store.TaskStatus(r.URL.Query().Get("status")),
		Limit:     limit,
		Offset:    offset,
	}
	tasks, err := s.store.ListTasks(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(tasks), "limit": limit, "offset": offset, "tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type patchTaskRequest struct {
	Status string `json:"status"`
}

func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	var req patchTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.store.PatchTask(r.Context(), mux.Vars(r)["id"], store.TaskStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}
