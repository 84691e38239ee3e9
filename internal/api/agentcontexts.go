package api

import "net/http"

func (s *Server) handleListAgentContexts(w http.ResponseWriter, r *http.Request) {
	contexts, err := s.store.ListAgentContexts(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(contexts), "contexts": contexts})
}

func (s *Server) handleAgentContextStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetAgentContextStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
