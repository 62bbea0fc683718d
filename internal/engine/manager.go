// Package engine routes sessions to the launcher of a browser engine.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/playwright-lab/internal/browser"
	"github.com/shehryarbajwa/playwright-lab/internal/config"
)

// Engine names a Playwright browser engine.
type Engine string

const (
	Chromium Engine = "chromium"
	Firefox  Engine = "firefox"
	WebKit   Engine = "webkit"
)

// imageEnsurer is implemented by launchers backed by a container image.
type imageEnsurer interface {
	EnsureImage(ctx context.Context) error
}

// Manager holds one launcher per engine.
type Manager struct {
	launchers map[Engine]browser.Launcher
	fallback  Engine
	mu        sync.RWMutex
}

// NewManager wires a launcher per engine from cfg. With the docker backend
// Chromium runs in containers; Firefox and WebKit always run in-process.
func NewManager(pw *playwright.Playwright, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		launchers: make(map[Engine]browser.Launcher),
		fallback:  Engine(cfg.Engine),
	}

	if cfg.Backend == config.BackendDocker {
		pool, err := browser.NewDockerPool(pw.Chromium, cfg.DockerImage)
		if err != nil {
			return nil, fmt.Errorf("failed to create pool for %s: %w", Chromium, err)
		}
		m.launchers[Chromium] = pool
	} else {
		m.launchers[Chromium] = browser.NewLocalLauncher(pw.Chromium)
	}
	m.launchers[Firefox] = browser.NewLocalLauncher(pw.Firefox)
	m.launchers[WebKit] = browser.NewLocalLauncher(pw.WebKit)

	if _, ok := m.launchers[m.fallback]; !ok {
		m.fallback = Chromium
	}
	return m, nil
}

// NewManagerWith builds a manager from explicit launchers.
func NewManagerWith(fallback Engine, launchers map[Engine]browser.Launcher) *Manager {
	m := &Manager{launchers: make(map[Engine]browser.Launcher, len(launchers)), fallback: fallback}
	for e, l := range launchers {
		m.launchers[e] = l
	}
	return m
}

// Launcher returns the launcher registered for e.
func (m *Manager) Launcher(e Engine) (browser.Launcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, exists := m.launchers[e]
	if !exists {
		return nil, fmt.Errorf("unsupported engine: %s", e)
	}
	return l, nil
}

// Route picks the engine for a session, falling back to the default when
// the requested one is empty or unknown.
func (m *Manager) Route(requested string) Engine {
	e := Engine(requested)

	m.mu.RLock()
	_, exists := m.launchers[e]
	m.mu.RUnlock()

	if exists {
		return e
	}
	return m.fallback
}

// Launch starts a browser of engine e.
func (m *Manager) Launch(ctx context.Context, e Engine, opts browser.LaunchOptions) (*browser.Instance, error) {
	l, err := m.Launcher(e)
	if err != nil {
		return nil, err
	}
	return l.Launch(ctx, opts)
}

// Stop stops inst with the launcher that started it.
func (m *Manager) Stop(ctx context.Context, inst *browser.Instance) error {
	l, err := m.Launcher(Engine(inst.Engine))
	if err != nil {
		return err
	}
	return l.Stop(ctx, inst)
}

// Alive reports whether inst is still usable. Launchers that cannot check
// health report every instance alive.
func (m *Manager) Alive(ctx context.Context, inst *browser.Instance) bool {
	if inst.ContainerID == "" {
		return true
	}
	l, err := m.Launcher(Engine(inst.Engine))
	if err != nil {
		return true
	}
	hc, ok := l.(browser.HealthChecker)
	if !ok {
		return true
	}
	return hc.IsHealthy(ctx, inst.ContainerID)
}

// EnsureImages pulls images for every container-backed engine.
func (m *Manager) EnsureImages(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for e, l := range m.launchers {
		ie, ok := l.(imageEnsurer)
		if !ok {
			continue
		}
		if err := ie.EnsureImage(ctx); err != nil {
			return fmt.Errorf("failed to ensure image for %s: %w", e, err)
		}
	}
	return nil
}

// Engines lists the registered engines in name order.
func (m *Manager) Engines() []Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	engines := make([]Engine, 0, len(m.launchers))
	for e := range m.launchers {
		engines = append(engines, e)
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i] < engines[j] })
	return engines
}

// Close closes every launcher and returns the first error.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for _, l := range m.launchers {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
