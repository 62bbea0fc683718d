// Package browser starts the browsers that sessions drive, either in-process
// through the Playwright driver or inside a browserless/chrome container.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Instance is a running browser owned by exactly one session.
type Instance struct {
	SessionID string
	Engine    string
	Browser   playwright.Browser

	// Set by the docker backend only.
	ContainerID string
	ConnectURL  string
	Port        string
}

// LaunchOptions apply to a single launch.
type LaunchOptions struct {
	SessionID string
	Headless  bool
	SlowMo    time.Duration
}

// Launcher starts and stops browsers for one engine.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (*Instance, error)
	Stop(ctx context.Context, inst *Instance) error
	Close() error
}

// HealthChecker is implemented by launchers whose browsers can die outside
// the session's control, such as containers.
type HealthChecker interface {
	IsHealthy(ctx context.Context, containerID string) bool
}

// StartPlaywright starts the driver, installing the given browsers first when
// install is set.
func StartPlaywright(install bool, browsers ...string) (*playwright.Playwright, error) {
	if install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: browsers}); err != nil {
			return nil, fmt.Errorf("failed to install playwright browsers: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return pw, nil
}
