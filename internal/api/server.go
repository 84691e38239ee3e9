package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swarmdeck/core/internal/auth"
	"github.com/swarmdeck/core/internal/store"
)

// Server wires the REST surface to a Store and Minter.
type Server struct {
	store   *store.Store
	minter  *auth.Minter
	limiter *auth.RateLimiter
	sweeper *store.Sweeper
	devMode bool
}

// NewServer builds a Server. sweeper may be nil if no background
// expiry sweeper is running in this process.
func NewServer(st *store.Store, minter *auth.Minter, sweeper *store.Sweeper, devMode bool) *Server {
	return &Server{
		store:   st,
		minter:  minter,
		limiter: auth.NewRateLimiter(),
		sweeper: sweeper,
		devMode: devMode,
	}
}

// Router builds the full gorilla/mux router with middleware applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware, loggingMiddleware, metricsMiddleware, jsonContentTypeMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleGlobalStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/tools-summary", s.handleToolsSummary).Methods(http.MethodGet)
	r.HandleFunc("/metrics", promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard/kpis", s.handleDashboardKPIs).Methods(http.MethodGet)

	api.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/by-path", s.handleGetProjectByPath).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", s.handleGetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", s.handleDeleteProject).Methods(http.MethodDelete)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/stats", s.handleSessionStats).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handlePatchSession).Methods(http.MethodPatch)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	api.HandleFunc("/requests", s.handleCreateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests", s.handleListRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", s.handleGetRequest).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", s.handlePatchRequest).Methods(http.MethodPatch)
	api.HandleFunc("/requests/{id}", s.handleDeleteRequest).Methods(http.MethodDelete)

	api.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handlePatchTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete)

	api.HandleFunc("/subtasks", s.handleCreateSubtask).Methods(http.MethodPost)
	api.HandleFunc("/subtasks", s.handleListSubtasks).Methods(http.MethodGet)
	api.HandleFunc("/subtasks/{id}", s.handleGetSubtask).Methods(http.MethodGet)
	api.HandleFunc("/subtasks/{id}", s.handlePatchSubtask).Methods(http.MethodPatch)
	api.HandleFunc("/subtasks/{id}", s.handleDeleteSubtask).Methods(http.MethodDelete)

	api.HandleFunc("/actions", s.handleIngestAction).Methods(http.MethodPost)
	api.HandleFunc("/actions", s.handleListActions).Methods(http.MethodGet)
	api.HandleFunc("/actions/hourly", s.handleActionsHourly).Methods(http.MethodGet)
	api.HandleFunc("/actions/by-session/{session_id}", s.handleDeleteActionsBySession).Methods(http.MethodDelete)
	api.HandleFunc("/actions/{id}", s.handleGetAction).Methods(http.MethodGet)
	api.HandleFunc("/actions/{id}", s.handleDeleteAction).Methods(http.MethodDelete)

	api.HandleFunc("/hierarchy/{project_id}", s.handleGetHierarchy).Methods(http.MethodGet)
	api.HandleFunc("/active-sessions", s.handleActiveSessions).Methods(http.MethodGet)

	api.HandleFunc("/routing/suggest", s.handleRoutingSuggest).Methods(http.MethodGet)
	api.HandleFunc("/routing/stats", s.handleRoutingStats).Methods(http.MethodGet)
	api.HandleFunc("/routing/feedback", s.handleRoutingFeedback).Methods(http.MethodPost)

	api.HandleFunc("/context/{agent_id}", s.handleGetContext).Methods(http.MethodGet)
	api.HandleFunc("/context/generate", s.handleGenerateContext).Methods(http.MethodPost)

	api.HandleFunc("/compact/save", s.handleCompactSave).Methods(http.MethodPost)
	api.HandleFunc("/compact/restore", s.handleCompactRestore).Methods(http.MethodPost)
	api.HandleFunc("/compact/status/{sid}", s.handleCompactStatus).Methods(http.MethodGet)
	api.HandleFunc("/compact/snapshot/{sid}", s.handleCompactSnapshot).Methods(http.MethodGet)

	api.HandleFunc("/messages", s.handlePublishMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages/{agent_id}", s.handleGetMessagesForAgent).Methods(http.MethodGet)

	api.HandleFunc("/subscribe", s.handleSubscribe).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions", s.handleListSubscriptions).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/{agent_id}", s.handleListSubscriptionsForAgent).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/{id}", s.handleDeleteSubscription).Methods(http.MethodDelete)
	api.HandleFunc("/unsubscribe", s.handleUnsubscribe).Methods(http.MethodPost)

	api.HandleFunc("/blocking", s.handleCreateBlocking).Methods(http.MethodPost)
	api.HandleFunc("/blocking/check", s.handleBlockingCheck).Methods(http.MethodGet)
	api.HandleFunc("/blocking/{agent_id}", s.handleGetBlockings).Methods(http.MethodGet)
	api.HandleFunc("/blocking/{blocked_id}", s.handleDeleteBlocking).Methods(http.MethodDelete)
	api.HandleFunc("/unblock", s.handleUnblock).Methods(http.MethodPost)

	api.HandleFunc("/agent-contexts", s.handleListAgentContexts).Methods(http.MethodGet)
	api.HandleFunc("/agent-contexts/stats", s.handleAgentContextStats).Methods(http.MethodGet)

	api.HandleFunc("/auth/token", s.handleMintToken).Methods(http.MethodPost)

	api.HandleFunc("/cleanup/stats", s.handleCleanupStats).Methods(http.MethodGet)

	return r
}
