package models

import "time"

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type SessionsUpdated struct {
	Action    string         `json:"action"` // "added" | "removed" | "imported"
	SessionID string         `json:"session_id,omitempty"`
	Sessions  []StudySession `json:"sessions"`
}

type PlannerTokenResponse struct {
	Token     string    `json:"token"`
	PlannerID string    `json:"planner_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
