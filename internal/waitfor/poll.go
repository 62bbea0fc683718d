// Package waitfor polls page state that Playwright's auto-waiting cannot
// express, such as a numeric attribute crossing a threshold.
package waitfor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// DefaultInterval is the pause between readings.
const DefaultInterval = 500 * time.Millisecond

// ErrTimeout is returned when the threshold is not reached in time.
var ErrTimeout = errors.New("waitfor: threshold not reached before timeout")

// AttributeReader reads an element attribute. playwright.Locator satisfies it.
type AttributeReader interface {
	GetAttribute(name string, options ...playwright.LocatorGetAttributeOptions) (string, error)
}

// PollOptions tunes UntilAttributeAtLeast.
type PollOptions struct {
	Interval time.Duration
	// Timeout bounds the whole wait. Zero means only ctx bounds it.
	Timeout time.Duration
	// OnValue, if set, sees every reading.
	OnValue func(value int)
}

// UntilAttributeAtLeast reads attr from loc until its integer value is at
// least threshold and returns that value. On timeout it returns the last
// value read together with ErrTimeout.
func UntilAttributeAtLeast(ctx context.Context, loc AttributeReader, attr string, threshold int, opts PollOptions) (int, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := 0
	for {
		raw, err := loc.GetAttribute(attr)
		if err != nil {
			return last, fmt.Errorf("failed to read %s: %w", attr, err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%")))
		if err != nil {
			return last, fmt.Errorf("%s is not an integer: %q", attr, raw)
		}
		last = value
		if opts.OnValue != nil {
			opts.OnValue(value)
		}
		if value >= threshold {
			return value, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return last, ErrTimeout
			}
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
