package intercept

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

type fakeRequest struct {
	url, method, resourceType string
}

func (f fakeRequest) URL() string          { return f.url }
func (f fakeRequest) Method() string       { return f.method }
func (f fakeRequest) ResourceType() string { return f.resourceType }

type fakeResponse struct {
	url    string
	status int
}

func (f fakeResponse) URL() string { return f.url }
func (f fakeResponse) Status() int { return f.status }

func TestBlockResourceTypes(t *testing.T) {
	rule := BlockResourceTypes(SkippedResourceTypes...)

	assert.Equal(t, Abort, rule(fakeRequest{url: "/logo.png", resourceType: "image"}))
	assert.Equal(t, Abort, rule(fakeRequest{url: "/site.css", resourceType: "stylesheet"}))
	assert.Equal(t, Continue, rule(fakeRequest{url: "/", resourceType: "document"}))
	assert.Equal(t, Continue, rule(fakeRequest{url: "/app.js", resourceType: "script"}))
}

func TestBlockResourceTypesNormalizesInput(t *testing.T) {
	rule := BlockResourceTypes(" Image ")
	assert.Equal(t, Abort, rule(fakeRequest{resourceType: "image"}))
}

func TestBlockURLContaining(t *testing.T) {
	rule := BlockURLContaining("doubleclick", "", "/ads/")

	assert.Equal(t, Abort, rule(fakeRequest{url: "https://ad.doubleclick.net/x"}))
	assert.Equal(t, Abort, rule(fakeRequest{url: "http://127.0.0.1/ads/banner.js"}))
	assert.Equal(t, Continue, rule(fakeRequest{url: "http://127.0.0.1/docs"}))
}

func TestChainFirstAbortWins(t *testing.T) {
	calls := 0
	counting := func(Request) Decision { calls++; return Continue }

	rule := Chain(counting, nil, BlockResourceTypes("image"), counting)

	assert.Equal(t, Abort, rule(fakeRequest{resourceType: "image"}))
	assert.Equal(t, 1, calls)

	assert.Equal(t, Continue, rule(fakeRequest{resourceType: "script"}))
	assert.Equal(t, 3, calls)
}

func TestEmptyChainContinues(t *testing.T) {
	assert.Equal(t, Continue, Chain()(fakeRequest{resourceType: "image"}))
}

func TestBlockURLContainingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		needle := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "needle")
		prefix := rapid.StringMatching(`[a-z/:.]{0,12}`).Draw(rt, "prefix")
		suffix := rapid.StringMatching(`[a-z/:.]{0,12}`).Draw(rt, "suffix")

		rule := BlockURLContaining(needle)
		if rule(fakeRequest{url: prefix + needle + suffix}) != Abort {
			rt.Fatalf("url containing %q was not blocked", needle)
		}
	})
}

func TestPatchJSONBody(t *testing.T) {
	out, err := patchJSONBody([]byte(`{"firstName":"Emily","lastName":"Johnson","age":28}`), func(doc map[string]any) {
		doc["lastName"] = "Sharma"
		doc["age"] = 200
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstName":"Emily","lastName":"Sharma","age":200}`, string(out))

	_, err = patchJSONBody([]byte(`[1,2]`), func(map[string]any) {})
	require.Error(t, err)
}

func TestFulfillJSONRejectsUnencodable(t *testing.T) {
	_, err := FulfillJSON(200, map[string]any{"ch": make(chan int)})
	require.Error(t, err)

	handler, err := FulfillJSON(200, map[string]string{"ok": "yes"})
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestRecorderKeepsOrderAndLimit(t *testing.T) {
	rec := NewRecorder(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	rec.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	for i := 0; i < 4; i++ {
		rec.observeRequest(fakeRequest{url: fmt.Sprintf("/r%d", i), method: "GET", resourceType: "fetch"})
	}
	rec.observeResponse(fakeResponse{url: "/r3", status: 200})

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "/r2", events[0].URL)
	assert.Equal(t, "/r3", events[1].URL)
	assert.Equal(t, models.EventResponse, events[2].Kind)
	assert.Equal(t, 200, events[2].Status)
	assert.True(t, events[0].At.Before(events[2].At))

	assert.Equal(t, 2, rec.Count(models.EventRequest))
	assert.Equal(t, 1, rec.Count(models.EventResponse))
}

func TestRecorderFailure(t *testing.T) {
	rec := NewRecorder(0)
	rec.observeFailure(fakeRequest{url: "/logo.png", method: "GET", resourceType: "image"}, "net::ERR_FAILED")

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventRequestFailed, events[0].Kind)
	assert.Equal(t, "net::ERR_FAILED", events[0].Failure)

	events[0].URL = "mutated"
	assert.Equal(t, "/logo.png", rec.Events()[0].URL)
}
