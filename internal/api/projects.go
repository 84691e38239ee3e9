package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
)

type createProjectRequest struct {
	Path     string            `json:"path"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (req *createProjectRequest) Validate() error {
	if req.Path == "" {
		return apierr.Validation("path is required", map[string]string{"path": "required"})
	}
	return nil
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	project, err := s.store.UpsertProject(r.Context(), req.Path, req.Name, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	projects, err := s.store.ListProjects(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(projects), "limit": limit, "offset": offset, "projects": projects})
}

func (s *Server) handleGetProjectByPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, apierr.Validation("path query parameter is required", nil))
		return
	}
	project, err := s.store.GetProjectByPath(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}
