// Package lab is the shared harness of the browser examples: one practice
// site and one Playwright driver per test binary, fresh contexts per test.
package lab

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/playwright-lab/internal/browser"
	"github.com/shehryarbajwa/playwright-lab/internal/playground"
)

// ActionTimeoutMS bounds every action, navigation and assertion.
const ActionTimeoutMS = 5000

// Env is what a browser example gets from Setup.
type Env struct {
	BaseURL string
	Site    *playground.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

var (
	once     sync.Once
	shared   *Env
	startErr error
	server   *httptest.Server
)

func start() {
	site, err := playground.New(playground.DefaultOptions())
	if err != nil {
		startErr = err
		return
	}
	server = httptest.NewServer(site)

	pw, err := browser.StartPlaywright(os.Getenv("PWLAB_INSTALL_BROWSERS") == "true", "chromium")
	if err != nil {
		startErr = err
		return
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(os.Getenv("PWLAB_HEADED") == ""),
	})
	if err != nil {
		pw.Stop()
		startErr = err
		return
	}

	shared = &Env{BaseURL: server.URL, Site: site, PW: pw, Browser: b}
}

// Setup returns the shared environment, skipping the test when Playwright or
// Chromium is not available.
func Setup(t *testing.T) *Env {
	t.Helper()
	once.Do(start)
	if startErr != nil {
		t.Skip("Playwright not available:", startErr)
	}
	return shared
}

// Main runs the tests of a package and tears the shared environment down.
// Use it from TestMain.
func Main(m *testing.M) int {
	code := m.Run()
	if shared != nil {
		shared.Browser.Close()
		shared.PW.Stop()
	}
	if server != nil {
		server.Close()
	}
	return code
}

// URL joins a practice site path onto the base URL.
func (e *Env) URL(path string) string {
	return e.BaseURL + path
}

// NewContext opens an isolated context that is closed when the test ends.
func (e *Env) NewContext(t *testing.T, opts ...playwright.BrowserNewContextOptions) playwright.BrowserContext {
	t.Helper()
	ctx, err := e.Browser.NewContext(opts...)
	if err != nil {
		t.Fatalf("could not create browser context: %v", err)
	}
	ctx.SetDefaultTimeout(ActionTimeoutMS)
	ctx.SetDefaultNavigationTimeout(ActionTimeoutMS)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// NewPage opens a page in a fresh context.
func (e *Env) NewPage(t *testing.T, opts ...playwright.BrowserNewContextOptions) playwright.Page {
	t.Helper()
	page, err := e.NewContext(t, opts...).NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	return page
}

// Goto opens path on a fresh page.
func (e *Env) Goto(t *testing.T, path string) playwright.Page {
	t.Helper()
	page := e.NewPage(t)
	if _, err := page.Goto(e.URL(path)); err != nil {
		t.Fatalf("could not open %s: %v", path, err)
	}
	return page
}

// Launch starts an extra browser of the named engine, skipping the test when
// that engine is not installed.
func (e *Env) Launch(t *testing.T, engine string, opts playwright.BrowserTypeLaunchOptions) playwright.Browser {
	t.Helper()
	var bt playwright.BrowserType
	switch engine {
	case "chromium":
		bt = e.PW.Chromium
	case "firefox":
		bt = e.PW.Firefox
	case "webkit":
		bt = e.PW.WebKit
	default:
		t.Fatalf("unknown engine %q", engine)
	}
	b, err := bt.Launch(opts)
	if err != nil {
		t.Skipf("%s not available: %v", engine, err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// Expect returns assertions that retry until ActionTimeoutMS.
func (e *Env) Expect() playwright.PlaywrightAssertions {
	return playwright.NewPlaywrightAssertions(ActionTimeoutMS)
}

// ArtifactDir returns a directory for screenshots, videos and traces. It is
// kept under PWLAB_ARTIFACTS_DIR when set, otherwise removed with the test.
func ArtifactDir(t *testing.T) string {
	t.Helper()
	root := os.Getenv("PWLAB_ARTIFACTS_DIR")
	if root == "" {
		return t.TempDir()
	}
	dir := filepath.Join(root, strings.ReplaceAll(t.Name(), "/", "_"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("could not create artifact dir: %v", err)
	}
	return dir
}

// Retry runs fn until it succeeds or attempts are used up, failing the test
// with the last error. It returns the attempt that passed, counting from 1.
func Retry(t testing.TB, attempts int, fn func(attempt int) error) int {
	t.Helper()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return attempt
		}
		t.Logf("attempt %d/%d failed: %v", attempt, attempts, err)
	}
	t.Fatalf("all %d attempts failed, last error: %v", attempts, err)
	return attempts
}
