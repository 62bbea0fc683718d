// Package session owns browser sessions: a launched browser, one context and
// one page per session, bounded per project and ended on timeout.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/playwright-lab/internal/browser"
	"github.com/shehryarbajwa/playwright-lab/internal/engine"
	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/intercept"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/internal/state"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

const (
	DefaultTimeout = 3600
	MinTimeout     = 60
	MaxTimeout     = 21600

	healthCheckTimeout = 5 * time.Second
)

// Engines launches and stops browsers. *engine.Manager satisfies it.
type Engines interface {
	Route(requested string) engine.Engine
	Launch(ctx context.Context, e engine.Engine, opts browser.LaunchOptions) (*browser.Instance, error)
	Stop(ctx context.Context, inst *browser.Instance) error
	Alive(ctx context.Context, inst *browser.Instance) bool
}

// Options configures a Manager.
type Options struct {
	// Concurrency caps running sessions per project.
	Concurrency int
	Headless    bool
	SlowMo      time.Duration
	// ActionTimeout is the default timeout of page actions.
	ActionTimeout time.Duration
	// Devices are the emulation descriptors sessions may ask for by name.
	Devices map[string]*playwright.DeviceDescriptor
	// EventLimit bounds the network events kept per session.
	EventLimit int
	// Retention is how long an ended session stays readable before it is
	// forgotten.
	Retention time.Duration
}

type entry struct {
	mu       sync.Mutex
	session  models.Session
	inst     *browser.Instance
	bctx     playwright.BrowserContext
	page     playwright.Page
	recorder *intercept.Recorder
	done     chan struct{}
}

// Manager handles all session operations
type Manager struct {
	sessions    sync.Map // id -> *entry
	concurrency map[string]*semaphore.Weighted
	usage       map[string]*models.ProjectUsage
	mu          sync.RWMutex
	engines     Engines
	states      *state.Store
	opts        Options
	log         *slog.Logger
}

func NewManager(engines Engines, states *state.Store, opts Options) *Manager {
	if opts.Concurrency < 1 {
		opts.Concurrency = 10
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 5 * time.Second
	}
	if opts.EventLimit <= 0 {
		opts.EventLimit = 500
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	return &Manager{
		concurrency: make(map[string]*semaphore.Weighted),
		usage:       make(map[string]*models.ProjectUsage),
		engines:     engines,
		states:      states,
		opts:        opts,
		log:         obs.Pkg("session"),
	}
}

// validate applies defaults to req and rejects values no launch could honour.
func (m *Manager) validate(req *models.CreateSessionRequest) (*playwright.DeviceDescriptor, error) {
	if req.ProjectID == "" {
		return nil, errs.New(errs.InvalidArgument, "projectId is required")
	}
	if req.Timeout == 0 {
		req.Timeout = DefaultTimeout
	}
	if req.Timeout < MinTimeout || req.Timeout > MaxTimeout {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("timeout must be between %d and %d seconds", MinTimeout, MaxTimeout))
	}
	if req.Viewport != nil && (req.Viewport.Width <= 0 || req.Viewport.Height <= 0) {
		return nil, errs.New(errs.InvalidArgument, "viewport width and height must be positive")
	}
	if g := req.Geolocation; g != nil && (g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180) {
		return nil, errs.New(errs.InvalidArgument, "geolocation is out of range")
	}

	var device *playwright.DeviceDescriptor
	if req.Device != "" {
		d, ok := m.opts.Devices[req.Device]
		if !ok {
			return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown device %q", req.Device))
		}
		device = d
	}
	return device, nil
}

// CreateSession launches a browser and opens a context and page for it.
func (m *Manager) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	device, err := m.validate(&req)
	if err != nil {
		return nil, err
	}

	statePath := ""
	if req.StateID != "" {
		if _, err := m.states.Get(req.StateID); err != nil {
			return nil, err
		}
		if m.states.HasData(req.StateID) {
			statePath = m.states.Path(req.StateID)
		}
	}

	if err := m.acquireSlot(req.ProjectID); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	target := m.engines.Route(req.Engine)

	inst, err := m.engines.Launch(ctx, target, browser.LaunchOptions{
		SessionID: sessionID,
		Headless:  m.opts.Headless,
		SlowMo:    m.opts.SlowMo,
	})
	if err != nil {
		m.releaseSlot(req.ProjectID)
		return nil, errs.Wrap(errs.Unavailable, "failed to launch browser", err)
	}

	e, err := m.open(inst, req, device, statePath)
	if err != nil {
		m.stopInstance(inst)
		m.releaseSlot(req.ProjectID)
		return nil, errs.Wrap(errs.Internal, "failed to open page", err)
	}

	now := time.Now().UTC()
	e.session = models.Session{
		ID:          sessionID,
		ProjectID:   req.ProjectID,
		Status:      models.StatusRunning,
		Engine:      string(target),
		StartedAt:   now,
		ExpiresAt:   now.Add(time.Duration(req.Timeout) * time.Second),
		Timeout:     req.Timeout,
		ConnectURL:  inst.ConnectURL,
		ContainerID: inst.ContainerID,
		StateID:     req.StateID,
		Device:      req.Device,
	}

	m.sessions.Store(sessionID, e)
	m.recordStart(req.ProjectID)

	m.log.Info("session started",
		"session_id", obs.ShortID(sessionID),
		"project_id", req.ProjectID,
		"engine", target,
		"state_id", req.StateID,
	)

	go m.handleTimeout(sessionID, time.Duration(req.Timeout)*time.Second, e.done)

	s := e.session
	return &s, nil
}

// open creates the context and page of a freshly launched browser.
func (m *Manager) open(inst *browser.Instance, req models.CreateSessionRequest, device *playwright.DeviceDescriptor, statePath string) (*entry, error) {
	bctx, err := inst.Browser.NewContext(contextOptions(req, device, statePath))
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(m.opts.ActionTimeout.Milliseconds()))

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	if rule := blockRule(req); rule != nil {
		if err := page.Route("**/*", intercept.Handler(rule, m.log)); err != nil {
			bctx.Close()
			return nil, fmt.Errorf("install route: %w", err)
		}
	}

	rec := intercept.NewRecorder(m.opts.EventLimit)
	rec.Attach(page)

	return &entry{
		inst:     inst,
		bctx:     bctx,
		page:     page,
		recorder: rec,
		done:     make(chan struct{}),
	}, nil
}

// contextOptions builds the context options for a session. An explicit
// viewport overrides the device's.
func contextOptions(req models.CreateSessionRequest, device *playwright.DeviceDescriptor, statePath string) playwright.BrowserNewContextOptions {
	var opts playwright.BrowserNewContextOptions

	if device != nil {
		opts.UserAgent = playwright.String(device.UserAgent)
		opts.Viewport = device.Viewport
		opts.DeviceScaleFactor = playwright.Float(device.DeviceScaleFactor)
		opts.IsMobile = playwright.Bool(device.IsMobile)
		opts.HasTouch = playwright.Bool(device.HasTouch)
	}
	if req.Viewport != nil {
		opts.Viewport = &playwright.Size{Width: req.Viewport.Width, Height: req.Viewport.Height}
	}
	if req.Geolocation != nil {
		opts.Geolocation = &playwright.Geolocation{
			Latitude:  req.Geolocation.Latitude,
			Longitude: req.Geolocation.Longitude,
		}
		opts.Permissions = []string{"geolocation"}
	}
	if req.IgnoreHTTPS {
		opts.IgnoreHttpsErrors = playwright.Bool(true)
	}
	if statePath != "" {
		opts.StorageStatePath = playwright.String(statePath)
	}
	return opts
}

func blockRule(req models.CreateSessionRequest) intercept.Rule {
	var rules []intercept.Rule
	if len(req.BlockResources) > 0 {
		rules = append(rules, intercept.BlockResourceTypes(req.BlockResources...))
	}
	if len(req.BlockURLs) > 0 {
		rules = append(rules, intercept.BlockURLContaining(req.BlockURLs...))
	}
	if len(rules) == 0 {
		return nil
	}
	return intercept.Chain(rules...)
}

func (m *Manager) lookup(id string) (*entry, error) {
	value, ok := m.sessions.Load(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "session not found")
	}
	return value.(*entry), nil
}

// running returns the entry locked; callers must unlock it.
func (m *Manager) running(id string) (*entry, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.session.Status != models.StatusRunning {
		e.mu.Unlock()
		return nil, errs.New(errs.FailedPrecondition, "session is not running")
	}
	return e, nil
}

// GetSession retrieves a session by ID. A running session whose container
// has died is ended with status ERROR first.
func (m *Manager) GetSession(id string) (*models.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	m.checkAlive(id, e)

	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	return &s, nil
}

func (m *Manager) checkAlive(id string, e *entry) {
	e.mu.Lock()
	inst := e.inst
	check := e.session.Status == models.StatusRunning && inst != nil && inst.ContainerID != ""
	e.mu.Unlock()
	if !check {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	if m.engines.Alive(ctx, inst) {
		return
	}

	m.log.Warn("browser container is gone", "session_id", obs.ShortID(id), "container_id", obs.ShortID(inst.ContainerID))
	if err := m.end(id, models.StatusError); err != nil && !errs.Is(err, errs.FailedPrecondition) {
		m.log.Warn("ending dead session failed", "session_id", obs.ShortID(id), "error", err)
	}
}

// ListSessions returns all sessions for a project, optionally filtered by status
func (m *Manager) ListSessions(projectID string, status models.SessionStatus) []*models.Session {
	var sessions []*models.Session

	m.sessions.Range(func(_, value any) bool {
		e := value.(*entry)
		e.mu.Lock()
		s := e.session
		e.mu.Unlock()

		if projectID != "" && s.ProjectID != projectID {
			return true
		}
		if status != "" && s.Status != status {
			return true
		}

		sessions = append(sessions, &s)
		return true
	})

	return sessions
}

// DeleteSession ends a running session, saving its storage state first when
// the session is bound to one.
func (m *Manager) DeleteSession(id string) error {
	return m.end(id, models.StatusCompleted)
}

// Shutdown ends every running session.
func (m *Manager) Shutdown() {
	for _, s := range m.ListSessions("", models.StatusRunning) {
		if err := m.end(s.ID, models.StatusCompleted); err != nil && !errs.Is(err, errs.FailedPrecondition) {
			m.log.Warn("ending session on shutdown failed", "session_id", obs.ShortID(s.ID), "error", err)
		}
	}
}

func (m *Manager) end(id string, status models.SessionStatus) error {
	e, err := m.running(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.session.StateID != "" {
		if err := m.states.Save(e.session.StateID, e.bctx); err != nil {
			m.log.Warn("saving storage state failed", "session_id", obs.ShortID(id), "state_id", e.session.StateID, "error", err)
		}
	}

	if err := e.bctx.Close(); err != nil {
		m.log.Warn("closing context failed", "session_id", obs.ShortID(id), "error", err)
	}
	m.stopInstance(e.inst)

	now := time.Now().UTC()
	e.session.Status = status
	e.session.EndedAt = &now
	close(e.done)

	m.recordEnd(e.session.ProjectID, now.Sub(e.session.StartedAt))
	m.releaseSlot(e.session.ProjectID)

	time.AfterFunc(m.opts.Retention, func() { m.sessions.CompareAndDelete(id, e) })

	m.log.Info("session ended", "session_id", obs.ShortID(id), "status", status)
	return nil
}

func (m *Manager) stopInstance(inst *browser.Instance) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.engines.Stop(ctx, inst); err != nil {
		m.log.Warn("stopping browser failed", "session_id", obs.ShortID(inst.SessionID), "error", err)
	}
}

// acquireSlot tries to acquire a concurrency slot for the project
func (m *Manager) acquireSlot(projectID string) error {
	m.mu.Lock()
	sem, exists := m.concurrency[projectID]
	if !exists {
		sem = semaphore.NewWeighted(int64(m.opts.Concurrency))
		m.concurrency[projectID] = sem
	}
	m.mu.Unlock()

	if !sem.TryAcquire(1) {
		return errs.New(errs.ResourceExhausted, fmt.Sprintf("concurrency limit reached for project %s", projectID))
	}

	return nil
}

// releaseSlot releases a concurrency slot for the project
func (m *Manager) releaseSlot(projectID string) {
	m.mu.RLock()
	sem := m.concurrency[projectID]
	m.mu.RUnlock()

	if sem != nil {
		sem.Release(1)
	}
}

// handleTimeout ends the session once its timeout elapses, unless it ended
// first.
func (m *Manager) handleTimeout(id string, timeout time.Duration, done <-chan struct{}) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
	}

	if err := m.end(id, models.StatusTimedOut); err != nil && !errs.Is(err, errs.FailedPrecondition) {
		m.log.Warn("ending timed out session failed", "session_id", obs.ShortID(id), "error", err)
	}
}
