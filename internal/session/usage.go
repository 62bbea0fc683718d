package session

import (
	"time"

	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

func (m *Manager) recordStart(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.usageFor(projectID)
	u.TotalSessions++
	u.ActiveSessions++
}

func (m *Manager) recordEnd(projectID string, ran time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.usageFor(projectID)
	u.ActiveSessions--
	u.BrowserSeconds += int64(ran.Round(time.Second) / time.Second)
}

// usageFor must be called with m.mu held.
func (m *Manager) usageFor(projectID string) *models.ProjectUsage {
	u, ok := m.usage[projectID]
	if !ok {
		u = &models.ProjectUsage{ProjectID: projectID}
		m.usage[projectID] = u
	}
	return u
}

// Usage reports browser time and session counts for a project. Running
// sessions count up to now.
func (m *Manager) Usage(projectID string) models.ProjectUsage {
	m.mu.RLock()
	var out models.ProjectUsage
	if u, ok := m.usage[projectID]; ok {
		out = *u
	}
	m.mu.RUnlock()
	out.ProjectID = projectID

	now := time.Now()
	for _, s := range m.ListSessions(projectID, models.StatusRunning) {
		out.BrowserSeconds += int64(now.Sub(s.StartedAt).Round(time.Second) / time.Second)
	}
	return out
}
