package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyflow-backend/internal/calendar"
	"studyflow-backend/internal/models"
	"studyflow-backend/internal/planner"
)

const (
	defaultDurationMinutes = 60
	maxDurationMinutes     = 24 * 60
)

// datetime-local inputs carry no zone; they are read in the planner timezone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Publisher pushes planner change notifications to connected clients.
type Publisher interface {
	Publish(ctx context.Context, plannerID uuid.UUID, msg models.WSMessage)
}

type PlannerService struct {
	registry  *planner.Registry
	exporter  *calendar.Exporter
	publisher Publisher
	loc       *time.Location
	newID     func() string
}

func NewPlannerService(registry *planner.Registry, exporter *calendar.Exporter, publisher Publisher, loc *time.Location) *PlannerService {
	if loc == nil {
		loc = time.Local
	}
	return &PlannerService{
		registry:  registry,
		exporter:  exporter,
		publisher: publisher,
		loc:       loc,
		newID:     uuid.NewString,
	}
}

// CreateSession validates the form payload, assigns a fresh id and appends
// the session. Invalid input never reaches the store.
func (s *PlannerService) CreateSession(ctx context.Context, plannerID uuid.UUID, req models.CreateSessionRequest) (models.StudySession, error) {
	session, err := s.buildSession(req)
	if err != nil {
		return models.StudySession{}, err
	}

	store := s.registry.Planner(plannerID)
	store.Add(session)

	s.notify(ctx, plannerID, store, "added", session.ID)
	return session, nil
}

// DeleteSession removes a session. Unknown ids are a no-op.
func (s *PlannerService) DeleteSession(ctx context.Context, plannerID uuid.UUID, id string) bool {
	store := s.registry.Planner(plannerID)
	if !store.Remove(id) {
		return false
	}

	s.notify(ctx, plannerID, store, "removed", id)
	return true
}

func (s *PlannerService) ListSessions(plannerID uuid.UUID) []models.StudySession {
	return s.registry.Planner(plannerID).List()
}

// ExportAll serializes the whole schedule in chronological order.
func (s *PlannerService) ExportAll(plannerID uuid.UUID) (content, filename string, err error) {
	sessions := s.registry.Planner(plannerID).List()
	if len(sessions) == 0 {
		return "", "", &ConflictError{Code: "NOTHING_TO_EXPORT", Message: "No sessions to export"}
	}
	return s.exporter.Generate(sessions), calendar.BulkFilename, nil
}

func (s *PlannerService) ExportSession(plannerID uuid.UUID, id string) (content, filename string, err error) {
	session, ok := s.registry.Planner(plannerID).Get(id)
	if !ok {
		return "", "", &NotFoundError{Message: "Session not found"}
	}
	return s.exporter.Generate([]models.StudySession{session}), calendar.SessionFilename(session.Subject), nil
}

// ImportCalendar adds every usable event of an iCalendar stream. Events that
// would break a session invariant are skipped. Colliding ids, and ids that
// cannot be addressed as a single /sessions/{id} segment, are replaced.
func (s *PlannerService) ImportCalendar(ctx context.Context, plannerID uuid.UUID, r io.Reader) (models.ImportResult, error) {
	parsed, skipped, err := calendar.ParseSessions(r, s.loc)
	if err != nil {
		return models.ImportResult{}, &ValidationError{Fields: map[string]string{"file": "Not a valid iCalendar file"}}
	}

	store := s.registry.Planner(plannerID)
	result := models.ImportResult{Imported: []models.StudySession{}, Skipped: skipped}

	for _, session := range parsed {
		if session.DurationMinutes > maxDurationMinutes {
			result.Skipped++
			continue
		}
		if _, taken := store.Get(session.ID); taken || !isPathSegment(session.ID) {
			session.ID = s.newID()
		}
		store.Add(session)
		result.Imported = append(result.Imported, session)
	}

	if len(result.Imported) > 0 {
		s.notify(ctx, plannerID, store, "imported", "")
	}
	return result, nil
}

func isPathSegment(id string) bool {
	return id != "" && id != "." && id != ".." && url.PathEscape(id) == id
}

func (s *PlannerService) buildSession(req models.CreateSessionRequest) (models.StudySession, error) {
	fieldErrors := make(map[string]string)

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		fieldErrors["subject"] = "Subject is required"
	}

	var start time.Time
	if strings.TrimSpace(req.StartTime) == "" {
		fieldErrors["start_time"] = "Start time is required"
	} else {
		t, err := ParseStartTime(req.StartTime, s.loc)
		if err != nil {
			fieldErrors["start_time"] = err.Error()
		}
		start = t
	}

	duration := defaultDurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	if duration <= 0 {
		fieldErrors["duration_minutes"] = "Duration must be greater than 0"
	} else if duration > maxDurationMinutes {
		fieldErrors["duration_minutes"] = fmt.Sprintf("Duration must be at most %d minutes", maxDurationMinutes)
	}

	if len(fieldErrors) > 0 {
		return models.StudySession{}, &ValidationError{Fields: fieldErrors}
	}

	return models.StudySession{
		ID:              s.newID(),
		Subject:         subject,
		StartTime:       start,
		DurationMinutes: duration,
	}, nil
}

// ParseStartTime accepts RFC 3339 or a zone-less datetime-local value read in loc.
func ParseStartTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("Invalid start time %q", value)
}

func (s *PlannerService) notify(ctx context.Context, plannerID uuid.UUID, store *planner.Store, action, sessionID string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, plannerID, models.WSMessage{
		Type: "sessions_updated",
		Payload: models.SessionsUpdated{
			Action:    action,
			SessionID: sessionID,
			Sessions:  store.List(),
		},
	})
}
