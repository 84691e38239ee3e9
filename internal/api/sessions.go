package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/store"
)

type createSessionRequest struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id,omitempty"`
}

func (req *createSessionRequest) Validate() error {
	if req.ID == "" {
		return apierr.Validation("id is required", map[string]string{"id": "required"})
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.store.CreateSession(r.Context(), req.ID, req.ProjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	sessions, err := s.store.ListSessions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(sessions), "limit": limit, "offset": offset, "sessions": sessions})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetSessionStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type patchSessionRequest struct {
	EndedAt  *string           `json:"ended_at,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handlePatchSession(w http.ResponseWriter, r *http.Request) {
	var req patchSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var patch store.UpdateSessionPatch
	if req.EndedAt != nil {
		t, err := parseRFC3339(*req.EndedAt)
		if err != nil {
			writeError(w, apierr.Validation("ended_at must be RFC3339", map[string]string{"ended_at": err.Error()}))
			return
		}
		patch.EndedAt = &t
	}
	patch.Metadata = req.Metadata

	sess, err := s.store.UpdateSession(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ActiveSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(sessions), "sessions": sessions})
}
