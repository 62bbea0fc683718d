package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// LocalLauncher launches a browser type of the in-process driver.
type LocalLauncher struct {
	browserType playwright.BrowserType
}

func NewLocalLauncher(bt playwright.BrowserType) *LocalLauncher {
	return &LocalLauncher{browserType: bt}
}

func (l *LocalLauncher) Launch(ctx context.Context, opts LaunchOptions) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := l.browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", l.browserType.Name(), err)
	}
	return &Instance{
		SessionID: opts.SessionID,
		Engine:    l.browserType.Name(),
		Browser:   b,
	}, nil
}

func (l *LocalLauncher) Stop(ctx context.Context, inst *Instance) error {
	if inst == nil || inst.Browser == nil {
		return nil
	}
	if err := inst.Browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// Close is a no-op; the driver is owned by whoever started it.
func (l *LocalLauncher) Close() error {
	return nil
}
