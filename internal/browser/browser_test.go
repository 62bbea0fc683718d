package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForBrowserReadyRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"Browser":"HeadlessChrome/120.0"}`))
	}))
	defer srv.Close()

	err := waitForBrowserReady(context.Background(), srv.URL+"/json/version", 10, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForBrowserReadyGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := waitForBrowserReady(context.Background(), srv.URL, 3, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 retries")
}

func TestWaitForBrowserReadyHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := waitForBrowserReady(ctx, srv.URL, 1000, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLocalLauncher(t *testing.T) {
	pw, err := StartPlaywright(false)
	if err != nil {
		t.Skipf("Playwright not available: %v", err)
	}
	defer pw.Stop()

	l := NewLocalLauncher(pw.Chromium)
	inst, err := l.Launch(context.Background(), LaunchOptions{SessionID: "abc", Headless: true})
	if err != nil {
		t.Skipf("Chromium not installed: %v", err)
	}
	assert.Equal(t, "chromium", inst.Engine)
	assert.True(t, inst.Browser.IsConnected())

	require.NoError(t, l.Stop(context.Background(), inst))
	assert.False(t, inst.Browser.IsConnected())
}

func TestLocalLauncherCancelledContext(t *testing.T) {
	l := NewLocalLauncher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Launch(ctx, LaunchOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSessionContainerAdmitsDebugRelay(t *testing.T) {
	cfg := sessionContainer("browserless/chrome:latest", "s1")

	assert.Equal(t, "browserless/chrome:latest", cfg.Image)
	assert.Equal(t, "s1", cfg.Labels["session-id"])
	assert.Contains(t, cfg.Env, "MAX_CONCURRENT_SESSIONS=2")
	assert.NotContains(t, cfg.Env, "MAX_CONCURRENT_SESSIONS=1")
	assert.Contains(t, cfg.ExposedPorts, nat.Port(cdpPort))
}
