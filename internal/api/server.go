package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/internal/proxy"
	"github.com/shehryarbajwa/playwright-lab/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes. CORS wraps the router so
// preflight requests are answered for every path.
func (h *Handler) SetupRoutes(stateHandler *StateHandler, proxyServer *proxy.Server, rateLimiter *ratelimit.Limiter) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(obs.Pkg("http")))

	api := r.PathPrefix("/v1").Subrouter()

	// Session lifecycle and state management are rate limited per project.
	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(rateLimiter))

	limited.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	limited.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	limited.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	limited.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	limited.HandleFunc("/sessions/{id}/navigate", h.NavigateSession).Methods("POST")

	limited.HandleFunc("/states", stateHandler.CreateState).Methods("POST")
	limited.HandleFunc("/states", stateHandler.ListStates).Methods("GET")
	limited.HandleFunc("/states/{id}", stateHandler.GetState).Methods("GET")
	limited.HandleFunc("/states/{id}", stateHandler.DeleteState).Methods("DELETE")

	// Polling endpoints are not rate limited.
	api.HandleFunc("/sessions/{id}/screenshot", h.GetSessionScreenshot).Methods("GET")
	api.HandleFunc("/sessions/{id}/events", h.GetSessionEvents).Methods("GET")
	api.HandleFunc("/projects/{id}/usage", h.GetProjectUsage).Methods("GET")

	api.HandleFunc("/sessions/{id}/debug", h.GetDebugURL).Methods("GET")
	api.HandleFunc("/sessions/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		proxyServer.HandleDebugConnection(w, r, mux.Vars(r)["id"])
	}).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	return corsMiddleware(r)
}
