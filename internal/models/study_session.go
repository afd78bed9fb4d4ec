package models

import (
	"time"
)

// StudySession is a planned study block. Records are never edited in place;
// an update is a delete followed by an insert with a fresh ID.
type StudySession struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// EndTime is StartTime plus DurationMinutes.
func (s StudySession) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// CreateSessionRequest is the planner form payload.
type CreateSessionRequest struct {
	Subject         string `json:"subject"`
	StartTime       string `json:"start_time"`
	DurationMinutes *int   `json:"duration_minutes"`
}

type SessionListResponse struct {
	Sessions []StudySession `json:"sessions"`
	Count    int            `json:"count"`
}

type ImportResult struct {
	Imported []StudySession `json:"imported"`
	Skipped  int            `json:"skipped"`
}
