package main

import (
	"bytes"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/playwright-lab/internal/browser"
	"github.com/shehryarbajwa/playwright-lab/internal/config"
	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/state"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pwlab dev\n", out)
}

func TestStateList(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := filepath.Join(t.TempDir(), "states")
	t.Setenv("PWLAB_STATE_DIR", dir)

	store, err := state.NewStore(dir)
	require.NoError(t, err)
	a, err := store.Create("alpha")
	require.NoError(t, err)
	b, err := store.Create("beta")
	require.NoError(t, err)

	out, err := run(t, "state", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out, a.ID)
	assert.Contains(t, out, b.ID)

	out, err = run(t, "state", "list", "--project", "beta")
	require.NoError(t, err)
	assert.NotContains(t, out, a.ID)
	assert.Contains(t, out, b.ID)
}

func TestStateReuseRejectsUnknownOrEmptyState(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := filepath.Join(t.TempDir(), "states")
	t.Setenv("PWLAB_STATE_DIR", dir)

	_, err := run(t, "state", "reuse", "missing")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	store, err := state.NewStore(dir)
	require.NoError(t, err)
	st, err := store.Create("p")
	require.NoError(t, err)

	_, err = run(t, "state", "reuse", st.ID)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.FailedPrecondition))
}

func TestInvalidConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PWLAB_BROWSER_ENGINE", "netscape")

	_, err := run(t, "state", "list")
	require.Error(t, err)
	assert.True(t, config.IsValidationError(err))
	assert.Contains(t, err.Error(), "browser.engine")
}

func TestPlaygroundLoginSurvivesRestart(t *testing.T) {
	first, stopFirst, err := startPlayground()
	require.NoError(t, err)
	defer stopFirst()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.PostForm(first+"/account/login", url.Values{
		"email":    {"emily.johnson@x.dummyjson.com"},
		"password": {"emilyspass"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	stopFirst()

	second, stopSecond, err := startPlayground()
	require.NoError(t, err)
	defer stopSecond()

	req, err := http.NewRequest(http.MethodGet, second+"/account", nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStateSaveThenReuse(t *testing.T) {
	pw, err := browser.StartPlaywright(false, "chromium")
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	b, err := pw.Chromium.Launch()
	if err != nil {
		pw.Stop()
		t.Skip("chromium not available:", err)
	}
	b.Close()
	pw.Stop()

	t.Chdir(t.TempDir())
	t.Setenv("PWLAB_STATE_DIR", filepath.Join(t.TempDir(), "states"))

	out, err := run(t, "state", "save", "--project", "p")
	require.NoError(t, err)
	m := regexp.MustCompile(`Saved state (\S+) `).FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	// reuse serves a fresh playground, so only the saved cookie carries the login.
	out, err = run(t, "state", "reuse", m[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Emily!")
}
