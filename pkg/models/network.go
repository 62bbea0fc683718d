package models

import "time"

// NetworkEventKind names the page event that produced a NetworkEvent
type NetworkEventKind string

const (
	EventRequest       NetworkEventKind = "request"
	EventResponse      NetworkEventKind = "response"
	EventRequestFailed NetworkEventKind = "requestfailed"
)

// NetworkEvent is one observed request, response or failure
type NetworkEvent struct {
	Kind         NetworkEventKind `json:"kind"`
	Method       string           `json:"method,omitempty"`
	URL          string           `json:"url"`
	ResourceType string           `json:"resourceType,omitempty"`
	Status       int              `json:"status,omitempty"`
	Failure      string           `json:"failure,omitempty"`
	At           time.Time        `json:"at"`
}
