package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

// States is the storage state store as the handlers use it.
type States interface {
	Create(projectID string) (*models.StorageState, error)
	Get(id string) (*models.StorageState, error)
	List(projectID string) []*models.StorageState
	Delete(id string) error
}

// StateHandler serves /v1/states.
type StateHandler struct {
	states States
	log    *slog.Logger
}

func NewStateHandler(states States) *StateHandler {
	return &StateHandler{
		states: states,
		log:    obs.Pkg("api"),
	}
}

// CreateState handles POST /v1/states
func (h *StateHandler) CreateState(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	st, err := h.states.Create(req.ProjectID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, st)
}

// ListStates handles GET /v1/states
func (h *StateHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	states := h.states.List(r.URL.Query().Get("projectId"))
	if states == nil {
		states = []*models.StorageState{}
	}
	writeJSON(w, http.StatusOK, states)
}

// GetState handles GET /v1/states/{id}
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.states.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// DeleteState handles DELETE /v1/states/{id}
func (h *StateHandler) DeleteState(w http.ResponseWriter, r *http.Request) {
	if err := h.states.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
