// Package intercept decides what happens to requests a page makes: let them
// through, abort them, or answer them with rewritten or mocked content.
package intercept

import (
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Request is the part of a browser request the rules look at.
// playwright.Request satisfies it.
type Request interface {
	URL() string
	ResourceType() string
}

// Decision is what a Rule wants done with a request.
type Decision int

const (
	Continue Decision = iota
	Abort
)

func (d Decision) String() string {
	if d == Abort {
		return "abort"
	}
	return "continue"
}

// Rule inspects a request and decides its fate.
type Rule func(Request) Decision

// SkippedResourceTypes are the heavy resources a page can usually render
// without.
var SkippedResourceTypes = []string{"image", "font", "stylesheet", "media"}

// BlockResourceTypes aborts requests whose resource type is listed.
func BlockResourceTypes(types ...string) Rule {
	blocked := make(map[string]struct{}, len(types))
	for _, t := range types {
		blocked[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return func(req Request) Decision {
		if _, ok := blocked[req.ResourceType()]; ok {
			return Abort
		}
		return Continue
	}
}

// BlockURLContaining aborts requests whose URL contains any substring.
// Empty substrings are ignored.
func BlockURLContaining(substrings ...string) Rule {
	var needles []string
	for _, s := range substrings {
		if s != "" {
			needles = append(needles, s)
		}
	}
	return func(req Request) Decision {
		url := req.URL()
		for _, n := range needles {
			if strings.Contains(url, n) {
				return Abort
			}
		}
		return Continue
	}
}

// Chain applies rules in order; the first Abort wins.
func Chain(rules ...Rule) Rule {
	return func(req Request) Decision {
		for _, r := range rules {
			if r == nil {
				continue
			}
			if d := r(req); d != Continue {
				return d
			}
		}
		return Continue
	}
}

// Handler turns a rule into a route callback for page.Route or
// context.Route.
func Handler(rule Rule, log *slog.Logger) func(playwright.Route) {
	return func(route playwright.Route) {
		req := route.Request()
		decision := rule(req)
		if log != nil {
			log.Debug("route decision",
				"url", req.URL(),
				"resource_type", req.ResourceType(),
				"decision", decision.String())
		}

		var err error
		if decision == Abort {
			err = route.Abort()
		} else {
			err = route.Continue()
		}
		if err != nil && log != nil {
			log.Warn("route handling failed", "url", req.URL(), "error", err)
		}
	}
}
