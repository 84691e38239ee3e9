package api

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetGlobalStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleToolsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetToolsSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDashboardKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := s.store.GetDashboardKPIs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kpis)
}

func (s *Server) handleCleanupStats(w http.ResponseWriter, r *http.Request) {
	if s.sweeper == nil {
		writeJSON(w, http.StatusOK, struct {
			ExpiredDeleted int `json:"expired_deleted"`
			ReadDeleted    int `json:"read_deleted"`
			SweepCount     int `json:"sweep_count"`
		}{})
		return
	}
	writeJSON(w, http.StatusOK, s.sweeper.Stats())
}
