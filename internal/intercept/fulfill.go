package intercept

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// RewriteBody fetches the real response for url and replaces old with
// replacement in its body before handing it to the page. Other URLs pass
// through.
func RewriteBody(url, old, replacement string, log *slog.Logger) func(playwright.Route) {
	return func(route playwright.Route) {
		if route.Request().URL() != url {
			continueRoute(route, log)
			return
		}

		response, err := route.Fetch()
		if err != nil {
			abortRoute(route, log, err)
			return
		}
		body, err := response.Text()
		if err != nil {
			abortRoute(route, log, err)
			return
		}

		if err := route.Fulfill(playwright.RouteFulfillOptions{
			Response: response,
			Body:     strings.ReplaceAll(body, old, replacement),
		}); err != nil && log != nil {
			log.Warn("fulfill failed", "url", url, "error", err)
		}
	}
}

// PatchJSON fetches the real response, lets fn edit the decoded JSON object
// and fulfills with the edited document.
func PatchJSON(fn func(doc map[string]any), log *slog.Logger) func(playwright.Route) {
	return func(route playwright.Route) {
		response, err := route.Fetch()
		if err != nil {
			abortRoute(route, log, err)
			return
		}
		raw, err := response.Body()
		if err != nil {
			abortRoute(route, log, err)
			return
		}

		patched, err := patchJSONBody(raw, fn)
		if err != nil {
			abortRoute(route, log, err)
			return
		}

		if err := route.Fulfill(playwright.RouteFulfillOptions{
			Response:    response,
			ContentType: playwright.String("application/json"),
			Body:        patched,
		}); err != nil && log != nil {
			log.Warn("fulfill failed", "url", route.Request().URL(), "error", err)
		}
	}
}

// FulfillJSON answers every routed request with v encoded as JSON, without
// touching the network.
func FulfillJSON(status int, v any) (func(playwright.Route), error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mock body: %w", err)
	}
	return func(route playwright.Route) {
		_ = route.Fulfill(playwright.RouteFulfillOptions{
			Status:      playwright.Int(status),
			ContentType: playwright.String("application/json"),
			Body:        body,
		})
	}, nil
}

func patchJSONBody(raw []byte, fn func(doc map[string]any)) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	fn(doc)
	return json.Marshal(doc)
}

func continueRoute(route playwright.Route, log *slog.Logger) {
	if err := route.Continue(); err != nil && log != nil {
		log.Warn("continue failed", "url", route.Request().URL(), "error", err)
	}
}

func abortRoute(route playwright.Route, log *slog.Logger, cause error) {
	if log != nil {
		log.Warn("aborting route", "url", route.Request().URL(), "error", cause)
	}
	_ = route.Abort()
}
