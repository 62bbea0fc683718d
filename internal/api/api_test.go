package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/proxy"
	"github.com/shehryarbajwa/playwright-lab/internal/ratelimit"
	"github.com/shehryarbajwa/playwright-lab/internal/state"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

type fakeSessions struct {
	sessions map[string]*models.Session
	lastReq  models.CreateSessionRequest
	fullPage bool
	events   []models.NetworkEvent
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*models.Session{}}
}

func (f *fakeSessions) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	f.lastReq = req
	if req.ProjectID == "" {
		return nil, errs.New(errs.InvalidArgument, "projectId is required")
	}
	if req.ProjectID == "full" {
		return nil, errs.New(errs.ResourceExhausted, "concurrency limit reached for project full")
	}
	s := &models.Session{ID: "s1", ProjectID: req.ProjectID, Status: models.StatusRunning, Engine: "chromium", StartedAt: time.Now()}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) GetSession(id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "session not found")
	}
	return s, nil
}

func (f *fakeSessions) ListSessions(projectID string, status models.SessionStatus) []*models.Session {
	var out []*models.Session
	for _, s := range f.sessions {
		if (projectID == "" || s.ProjectID == projectID) && (status == "" || s.Status == status) {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSessions) DeleteSession(id string) error {
	s, err := f.GetSession(id)
	if err != nil {
		return err
	}
	if s.Status != models.StatusRunning {
		return errs.New(errs.FailedPrecondition, "session is not running")
	}
	s.Status = models.StatusCompleted
	return nil
}

func (f *fakeSessions) Navigate(ctx context.Context, id string, req models.NavigateRequest) (*models.NavigateResponse, error) {
	if _, err := f.GetSession(id); err != nil {
		return nil, err
	}
	return &models.NavigateResponse{URL: req.URL, Title: "Example Domain", Status: 200, WaitUntil: "load"}, nil
}

func (f *fakeSessions) Screenshot(ctx context.Context, id string, fullPage bool) ([]byte, error) {
	if _, err := f.GetSession(id); err != nil {
		return nil, err
	}
	f.fullPage = fullPage
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (f *fakeSessions) Events(id string, kind models.NetworkEventKind) ([]models.NetworkEvent, error) {
	if _, err := f.GetSession(id); err != nil {
		return nil, err
	}
	return f.events, nil
}

func (f *fakeSessions) Usage(projectID string) models.ProjectUsage {
	return models.ProjectUsage{ProjectID: projectID, TotalSessions: len(f.sessions)}
}

func newTestAPI(t *testing.T, perHour, burst int) (*fakeSessions, *state.Store, http.Handler) {
	t.Helper()
	sessions := newFakeSessions()
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	h := NewHandler(sessions)
	router := h.SetupRoutes(NewStateHandler(store), proxy.NewServer(sessions), ratelimit.NewLimiter(perHour, burst))
	return sessions, store, router
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSessionLifecycle(t *testing.T) {
	sessions, _, h := newTestAPI(t, 100, 10)

	rec := do(t, h, http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "p", Engine: "firefox", Timeout: 120})
	require.Equal(t, http.StatusCreated, rec.Code)
	s := decodeBody[models.Session](t, rec)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "firefox", sessions.lastReq.Engine)
	assert.Equal(t, 120, sessions.lastReq.Timeout)

	rec = do(t, h, http.MethodGet, "/v1/sessions/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/sessions?projectId=p&status=RUNNING", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Session](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/v1/sessions/s1/navigate", models.NavigateRequest{URL: "http://example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Example Domain", decodeBody[models.NavigateResponse](t, rec).Title)

	rec = do(t, h, http.MethodDelete, "/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session is not running", decodeBody[map[string]string](t, rec)["error"])
}

func TestListSessionsEmptyIsArray(t *testing.T) {
	_, _, h := newTestAPI(t, 100, 10)
	rec := do(t, h, http.MethodGet, "/v1/sessions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	_, _, h := newTestAPI(t, 100, 10)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing project", http.MethodPost, "/v1/sessions", models.CreateSessionRequest{}, http.StatusBadRequest},
		{"slots exhausted", http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "full"}, http.StatusTooManyRequests},
		{"unknown session", http.MethodGet, "/v1/sessions/nope", nil, http.StatusNotFound},
		{"unknown screenshot", http.MethodGet, "/v1/sessions/nope/screenshot", nil, http.StatusNotFound},
		{"unknown state", http.MethodGet, "/v1/states/nope", nil, http.StatusNotFound},
		{"bad event kind", http.MethodGet, "/v1/sessions/s1/events?kind=websocket", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeBody[map[string]string](t, rec)["error"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreenshot(t *testing.T) {
	sessions, _, h := newTestAPI(t, 100, 10)
	do(t, h, http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "p"})

	rec := do(t, h, http.MethodGet, "/v1/sessions/s1/screenshot?fullPage=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, sessions.fullPage)

	rec = do(t, h, http.MethodGet, "/v1/sessions/s1/screenshot?fullPage=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsAndUsage(t *testing.T) {
	sessions, _, h := newTestAPI(t, 100, 10)
	do(t, h, http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "p"})

	rec := do(t, h, http.MethodGet, "/v1/sessions/s1/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	sessions.events = []models.NetworkEvent{{Kind: models.EventResponse, URL: "http://x/", Status: 200}}
	rec = do(t, h, http.MethodGet, "/v1/sessions/s1/events?kind=response", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.NetworkEvent](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/v1/projects/p/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decodeBody[models.ProjectUsage](t, rec)
	assert.Equal(t, "p", usage.ProjectID)
	assert.Equal(t, 1, usage.TotalSessions)
}

func TestDebugURL(t *testing.T) {
	_, _, h := newTestAPI(t, 100, 10)
	do(t, h, http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "p"})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/debug", nil)
	req.Host = "lab.local:8080"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ws://lab.local:8080/v1/sessions/s1/ws", decodeBody[map[string]string](t, rec)["debuggerUrl"])
}

func TestStates(t *testing.T) {
	_, _, h := newTestAPI(t, 100, 10)

	rec := do(t, h, http.MethodPost, "/v1/states", models.CreateStateRequest{ProjectID: "p"})
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decodeBody[models.StorageState](t, rec)
	assert.False(t, st.HasData)

	rec = do(t, h, http.MethodGet, "/v1/states?projectId=p", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.StorageState](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/v1/states/"+st.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/v1/states/"+st.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/states/"+st.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/states", models.CreateStateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	_, _, h := newTestAPI(t, 100, 2)

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/v1/sessions?projectId=p", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(t, h, http.MethodGet, "/v1/sessions?projectId=p", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other projects and unlimited endpoints are unaffected.
	rec = do(t, h, http.MethodGet, "/v1/sessions?projectId=q", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/projects/p/usage?projectId=p", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitReadsProjectFromBody(t *testing.T) {
	sessions, _, h := newTestAPI(t, 100, 2)

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "p"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	}
	// The handler still sees the body after the limiter read it.
	assert.Equal(t, "p", sessions.lastReq.ProjectID)

	rec := do(t, h, http.MethodPost, "/v1/sessions", models.CreateSessionRequest{ProjectID: "p"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, h, http.MethodPost, "/v1/states", models.CreateStateRequest{ProjectID: "p"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/states", models.CreateStateRequest{ProjectID: "q"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	_, _, h := newTestAPI(t, 100, 10)
	rec := do(t, h, http.MethodOptions, "/v1/sessions/s1/navigate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
