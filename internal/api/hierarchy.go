package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleGetHierarchy(w http.ResponseWriter, r *http.Request) {
	project, requests, err := s.store.GetHierarchy(r.Context(), mux.Vars(r)["project_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project, "requests": requests})
}
