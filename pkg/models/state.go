package models

import "time"

// StorageState describes a persisted snapshot of a browser context's cookies
// and local storage
type StorageState struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Cookies   int       `json:"cookies"`
	Origins   int       `json:"origins"`
	HasData   bool      `json:"hasData"`
}

// CreateStateRequest is the payload for creating an empty storage state
type CreateStateRequest struct {
	ProjectID string `json:"projectId"`
}
