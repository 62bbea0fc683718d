package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/playwright-lab/internal/playground"
)

func newPlaygroundCmd(root *rootOptions) *cobra.Command {
	var addr string
	opts := playground.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "playground",
		Short: "Serve the practice site the browser examples run against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.PlaygroundAddr
			}

			site, err := playground.New(opts)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{Handler: site, ReadHeaderTimeout: 10 * time.Second}
			info(cmd.OutOrStdout(), "Playground on http://%s", ln.Addr())
			return runUntilDone(ctx, srv, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&opts.LoadDelay, "load-delay", opts.LoadDelay, "delay of the /loaddelay page")
	cmd.Flags().DurationVar(&opts.AjaxDelay, "ajax-delay", opts.AjaxDelay, "delay of AJAX answers")
	cmd.Flags().DurationVar(&opts.ProgressStep, "progress-step", opts.ProgressStep, "interval between progress bar steps")
	return cmd
}

// runUntilDone serves on ln until ctx ends, then shuts srv down.
func runUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startPlayground serves the practice site on a loopback port for one
// command run.
func startPlayground() (string, func(), error) {
	site, err := playground.New(playground.DefaultOptions())
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen: %w", err)
	}
	srv := &http.Server{Handler: site, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	return "http://" + ln.Addr().String(), func() { srv.Close() }, nil
}
