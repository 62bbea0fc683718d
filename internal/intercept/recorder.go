package intercept

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

// DefaultRecorderLimit caps how many events a Recorder keeps.
const DefaultRecorderLimit = 500

type requestInfo interface {
	URL() string
	Method() string
	ResourceType() string
}

type responseInfo interface {
	URL() string
	Status() int
}

// Recorder keeps the most recent network events seen by a page.
type Recorder struct {
	mu     sync.Mutex
	events []models.NetworkEvent
	limit  int
	now    func() time.Time
}

// NewRecorder returns a Recorder holding at most limit events; limit <= 0
// selects DefaultRecorderLimit.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultRecorderLimit
	}
	return &Recorder{limit: limit, now: time.Now}
}

// Attach subscribes to the page's request, response and requestfailed events.
func (r *Recorder) Attach(page playwright.Page) {
	page.OnRequest(func(req playwright.Request) {
		r.observeRequest(req)
	})
	page.OnResponse(func(resp playwright.Response) {
		r.observeResponse(resp)
	})
	page.OnRequestFailed(func(req playwright.Request) {
		failure := ""
		if err := req.Failure(); err != nil {
			failure = err.Error()
		}
		r.observeFailure(req, failure)
	})
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []models.NetworkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NetworkEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(kind models.NetworkEventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) observeRequest(req requestInfo) {
	r.add(models.NetworkEvent{
		Kind:         models.EventRequest,
		Method:       req.Method(),
		URL:          req.URL(),
		ResourceType: req.ResourceType(),
	})
}

func (r *Recorder) observeResponse(resp responseInfo) {
	r.add(models.NetworkEvent{
		Kind:   models.EventResponse,
		URL:    resp.URL(),
		Status: resp.Status(),
	})
}

func (r *Recorder) observeFailure(req requestInfo, failure string) {
	r.add(models.NetworkEvent{
		Kind:         models.EventRequestFailed,
		Method:       req.Method(),
		URL:          req.URL(),
		ResourceType: req.ResourceType(),
		Failure:      failure,
	})
}

func (r *Recorder) add(e models.NetworkEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.At = r.now()
	r.events = append(r.events, e)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
}
