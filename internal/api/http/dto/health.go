package dto

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	Error          string `json:"error,omitempty"`
}
