// Package api exposes sessions and storage states over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

// Sessions is the session manager as the handlers use it.
type Sessions interface {
	CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error)
	GetSession(id string) (*models.Session, error)
	ListSessions(projectID string, status models.SessionStatus) []*models.Session
	DeleteSession(id string) error
	Navigate(ctx context.Context, id string, req models.NavigateRequest) (*models.NavigateResponse, error)
	Screenshot(ctx context.Context, id string, fullPage bool) ([]byte, error)
	Events(id string, kind models.NetworkEventKind) ([]models.NetworkEvent, error)
	Usage(projectID string) models.ProjectUsage
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessions Sessions
	log      *slog.Logger
}

func NewHandler(sessions Sessions) *Handler {
	return &Handler{
		sessions: sessions,
		log:      obs.Pkg("api"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a coded error to its status. Uncoded errors are logged and
// reported as internal.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, msg := errs.Reply(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid request body", err)
	}
	return nil
}

// CreateSession handles POST /v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// ListSessions handles GET /v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	status := models.SessionStatus(r.URL.Query().Get("status"))

	sessions := h.sessions.ListSessions(projectID, status)
	if sessions == nil {
		sessions = []*models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// DeleteSession handles DELETE /v1/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDebugURL handles GET /v1/sessions/{id}/debug
func (h *Handler) GetDebugURL(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"debuggerUrl": fmt.Sprintf("ws://%s/v1/sessions/%s/ws", r.Host, session.ID),
		"sessionId":   session.ID,
		"status":      string(session.Status),
	})
}

// GetSessionScreenshot handles GET /v1/sessions/{id}/screenshot
func (h *Handler) GetSessionScreenshot(w http.ResponseWriter, r *http.Request) {
	fullPage := false
	if v := r.URL.Query().Get("fullPage"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, h.log, errs.New(errs.InvalidArgument, "fullPage must be a boolean"))
			return
		}
		fullPage = b
	}

	png, err := h.sessions.Screenshot(r.Context(), mux.Vars(r)["id"], fullPage)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(png)
}

// NavigateSession handles POST /v1/sessions/{id}/navigate
func (h *Handler) NavigateSession(w http.ResponseWriter, r *http.Request) {
	var req models.NavigateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.sessions.Navigate(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSessionEvents handles GET /v1/sessions/{id}/events
func (h *Handler) GetSessionEvents(w http.ResponseWriter, r *http.Request) {
	kind := models.NetworkEventKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", models.EventRequest, models.EventResponse, models.EventRequestFailed:
	default:
		writeError(w, h.log, errs.New(errs.InvalidArgument, "kind must be request, response or requestfailed"))
		return
	}

	events, err := h.sessions.Events(mux.Vars(r)["id"], kind)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if events == nil {
		events = []models.NetworkEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetProjectUsage handles GET /v1/projects/{id}/usage
func (h *Handler) GetProjectUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Usage(mux.Vars(r)["id"]))
}
