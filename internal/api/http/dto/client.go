package dto

import "time"

type ClientInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type ClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
	Count   int          `json:"count"`
}

type AuditEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Principal int64     `json:"principal"`
	Action    string    `json:"action"`
	Client    string    `json:"client,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

type AuditResponse struct {
	Events []AuditEvent `json:"events"`
	Count  int          `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
