package domain

import "time"

// CallRecord is one row of the dashboard call log as returned by the
// backend.
type CallRecord struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"orgId"`
	CallerNumber string    `json:"callerNumber"`
	Direction    string    `json:"direction,omitempty"`
	Status       string    `json:"status"`
	DurationSec  float64   `json:"durationSec"`
	StartedAt    time.Time `json:"startedAt"`
	Summary      string    `json:"summary,omitempty"`
}

// OAuthResult is the backend's answer to a calendar OAuth code exchange.
type OAuthResult struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider,omitempty"`
	Email    string `json:"email,omitempty"`
}
