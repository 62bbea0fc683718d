package models

import "time"

// SessionStatus represents the current state of a browser session
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusError     SessionStatus = "ERROR"
	StatusTimedOut  SessionStatus = "TIMED_OUT"
)

// Session represents an open browser context with one page
type Session struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"projectId"`
	Status      SessionStatus `json:"status"`
	Engine      string        `json:"engine"`
	StartedAt   time.Time     `json:"startedAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	EndedAt     *time.Time    `json:"endedAt,omitempty"`
	Timeout     int           `json:"timeout"`
	ConnectURL  string        `json:"connectUrl,omitempty"`
	ContainerID string        `json:"-"`
	StateID     string        `json:"stateId,omitempty"`
	Device      string        `json:"device,omitempty"`
	CurrentURL  string        `json:"currentUrl,omitempty"`
}

// Viewport is a page size in CSS pixels
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Geolocation is a position reported to pages that ask for it
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CreateSessionRequest is the payload for creating a new session
type CreateSessionRequest struct {
	ProjectID      string       `json:"projectId"`
	Engine         string       `json:"engine,omitempty"`
	Timeout        int          `json:"timeout,omitempty"`
	StateID        string       `json:"stateId,omitempty"`
	Device         string       `json:"device,omitempty"`
	Viewport       *Viewport    `json:"viewport,omitempty"`
	Geolocation    *Geolocation `json:"geolocation,omitempty"`
	BlockResources []string     `json:"blockResources,omitempty"`
	BlockURLs      []string     `json:"blockUrls,omitempty"`
	IgnoreHTTPS    bool         `json:"ignoreHttpsErrors,omitempty"`
}

// NavigateRequest is the payload for POST /v1/sessions/{id}/navigate
type NavigateRequest struct {
	URL       string `json:"url"`
	WaitUntil string `json:"waitUntil,omitempty"`
}

// NavigateResponse reports where the page ended up
type NavigateResponse struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	WaitUntil  string `json:"waitUntil"`
	LoadTimeMs int64  `json:"loadTimeMs"`
}

// ProjectUsage tracks resource consumption for a project
type ProjectUsage struct {
	ProjectID      string `json:"projectId"`
	BrowserSeconds int64  `json:"browserSeconds"`
	ActiveSessions int    `json:"activeSessions"`
	TotalSessions  int    `json:"totalSessions"`
}
