package session

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

var waitStates = map[string]*playwright.WaitUntilState{
	"load":             playwright.WaitUntilStateLoad,
	"domcontentloaded": playwright.WaitUntilStateDomcontentloaded,
	"networkidle":      playwright.WaitUntilStateNetworkidle,
	"commit":           playwright.WaitUntilStateCommit,
}

// parseNavigate normalises a navigate request.
func parseNavigate(req models.NavigateRequest) (string, *playwright.WaitUntilState, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Scheme != "about" && u.Scheme != "data") {
		return "", nil, errs.New(errs.InvalidArgument, "url must be absolute")
	}

	name := strings.ToLower(req.WaitUntil)
	if name == "" {
		name = "load"
	}
	state, ok := waitStates[name]
	if !ok {
		return "", nil, errs.New(errs.InvalidArgument, "waitUntil must be one of load, domcontentloaded, networkidle, commit")
	}
	return name, state, nil
}

// Navigate loads a URL in the session's page.
func (m *Manager) Navigate(ctx context.Context, id string, req models.NavigateRequest) (*models.NavigateResponse, error) {
	waitName, waitState, err := parseNavigate(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := m.running(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	start := time.Now()
	resp, err := e.page.Goto(strings.TrimSpace(req.URL), playwright.PageGotoOptions{WaitUntil: waitState})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "navigation failed", err)
	}
	elapsed := time.Since(start)

	title, err := e.page.Title()
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to read title", err)
	}

	out := &models.NavigateResponse{
		URL:        e.page.URL(),
		Title:      title,
		WaitUntil:  waitName,
		LoadTimeMs: elapsed.Milliseconds(),
	}
	// Same-document navigations have no response.
	if resp != nil {
		out.Status = resp.Status()
	}
	e.session.CurrentURL = out.URL

	m.log.Debug("navigated", "session_id", obs.ShortID(id), "url", out.URL, "status", out.Status, "load_ms", out.LoadTimeMs)
	return out, nil
}

// Screenshot captures the session's page as PNG.
func (m *Manager) Screenshot(ctx context.Context, id string, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := m.running(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	png, err := e.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "screenshot failed", err)
	}
	return png, nil
}

// Events returns the network events recorded for a session. Events of ended
// sessions stay readable.
func (m *Manager) Events(id string, kind models.NetworkEventKind) ([]models.NetworkEvent, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	all := e.recorder.Events()
	if kind == "" {
		return all, nil
	}
	out := make([]models.NetworkEvent, 0, len(all))
	for _, ev := range all {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out, nil
}
