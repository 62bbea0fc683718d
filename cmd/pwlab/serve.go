package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/playwright-lab/internal/api"
	"github.com/shehryarbajwa/playwright-lab/internal/browser"
	"github.com/shehryarbajwa/playwright-lab/internal/config"
	"github.com/shehryarbajwa/playwright-lab/internal/engine"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/internal/proxy"
	"github.com/shehryarbajwa/playwright-lab/internal/ratelimit"
	"github.com/shehryarbajwa/playwright-lab/internal/session"
	"github.com/shehryarbajwa/playwright-lab/internal/state"
)

const (
	imagePullTimeout = 5 * time.Minute
	shutdownTimeout  = 10 * time.Second
	limiterIdle      = 2 * time.Hour
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the browser session API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, cfg)
		},
	}
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	log := obs.Pkg("serve")

	pw, err := browser.StartPlaywright(cfg.Browser.InstallBrowsers, string(engine.Chromium), string(engine.Firefox), string(engine.WebKit))
	if err != nil {
		return err
	}
	defer pw.Stop()
	ok(out, "Playwright driver started")

	engines, err := engine.NewManager(pw, cfg.Browser)
	if err != nil {
		return err
	}
	defer engines.Close()
	ok(out, "Engines ready: %v (default %s, backend %s)", engines.Engines(), cfg.Browser.Engine, cfg.Browser.Backend)

	if cfg.Browser.Backend == config.BackendDocker {
		wait(out, "Ensuring browser image %s is available...", cfg.Browser.DockerImage)
		pullCtx, cancel := context.WithTimeout(ctx, imagePullTimeout)
		err := engines.EnsureImages(pullCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ensure images: %w", err)
		}
		ok(out, "Browser image ready")
	}

	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return err
	}
	ok(out, "Storage states in %s", cfg.StateDir)

	sessions := session.NewManager(engines, store, session.Options{
		Concurrency:   cfg.SessionConcurrency,
		Retention:     cfg.SessionRetention,
		Headless:      cfg.Browser.Headless,
		SlowMo:        cfg.Browser.SlowMo,
		ActionTimeout: cfg.Browser.Timeout,
		Devices:       pw.Devices,
	})

	limiter := ratelimit.NewLimiter(cfg.RateLimitPerHour, cfg.RateLimitBurst)
	go pruneLimiter(ctx, limiter)

	handler := api.NewHandler(sessions)
	router := handler.SetupRoutes(api.NewStateHandler(store), proxy.NewServer(sessions), limiter)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	info(out, "API listening on %s (rate limit %d req/hour per project)", cfg.ListenAddr, limiter.PerHour())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sessions.Shutdown()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	wait(out, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "error", err)
	}
	sessions.Shutdown()
	ok(out, "Stopped cleanly")
	return nil
}

func pruneLimiter(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(limiterIdle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(limiterIdle); n > 0 {
				obs.Pkg("ratelimit").Debug("pruned idle buckets", "count", n)
			}
		}
	}
}
