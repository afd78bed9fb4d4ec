package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyflow-backend/internal/calendar"
	"studyflow-backend/internal/models"
	"studyflow-backend/internal/planner"
)

type recordingPublisher struct {
	messages []models.WSMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, plannerID uuid.UUID, msg models.WSMessage) {
	p.messages = append(p.messages, msg)
}

func newTestService(t *testing.T) (*PlannerService, *recordingPublisher) {
	t.Helper()

	exporter := calendar.NewExporter("", "")
	exporter.Now = func() time.Time { return time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC) }

	pub := &recordingPublisher{}
	svc := NewPlannerService(planner.NewRegistry(time.Hour), exporter, pub, time.UTC)

	n := 0
	svc.newID = func() string {
		n++
		return "s" + strconv.Itoa(n)
	}
	return svc, pub
}

func intPtr(n int) *int { return &n }

func TestCreateSession_Valid(t *testing.T) {
	svc, pub := newTestService(t)
	plannerID := uuid.New()

	got, err := svc.CreateSession(context.Background(), plannerID, models.CreateSessionRequest{
		Subject:         "  Quantum Physics ",
		StartTime:       "2024-01-10T09:00",
		DurationMinutes: intPtr(90),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if got.ID != "s1" || got.Subject != "Quantum Physics" || got.DurationMinutes != 90 {
		t.Fatalf("unexpected session %+v", got)
	}
	if want := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC); !got.StartTime.Equal(want) {
		t.Fatalf("expected start %s, got %s", want, got.StartTime)
	}
	if len(svc.ListSessions(plannerID)) != 1 {
		t.Fatalf("expected session in store")
	}
	if len(pub.messages) != 1 || pub.messages[0].Type != "sessions_updated" {
		t.Fatalf("expected one sessions_updated push, got %+v", pub.messages)
	}
}

func TestCreateSession_DefaultDuration(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.CreateSession(context.Background(), uuid.New(), models.CreateSessionRequest{
		Subject:   "Biology",
		StartTime: "2024-01-10T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if got.DurationMinutes != 60 {
		t.Fatalf("expected default 60 minutes, got %d", got.DurationMinutes)
	}
}

func TestCreateSession_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		req   models.CreateSessionRequest
		field string
	}{
		{"missing subject", models.CreateSessionRequest{StartTime: "2024-01-10T09:00"}, "subject"},
		{"blank subject", models.CreateSessionRequest{Subject: "   ", StartTime: "2024-01-10T09:00"}, "subject"},
		{"missing start", models.CreateSessionRequest{Subject: "Math"}, "start_time"},
		{"bad start", models.CreateSessionRequest{Subject: "Math", StartTime: "tomorrow"}, "start_time"},
		{"zero duration", models.CreateSessionRequest{Subject: "Math", StartTime: "2024-01-10T09:00", DurationMinutes: intPtr(0)}, "duration_minutes"},
		{"negative duration", models.CreateSessionRequest{Subject: "Math", StartTime: "2024-01-10T09:00", DurationMinutes: intPtr(-15)}, "duration_minutes"},
		{"too long", models.CreateSessionRequest{Subject: "Math", StartTime: "2024-01-10T09:00", DurationMinutes: intPtr(24*60 + 1)}, "duration_minutes"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, pub := newTestService(t)
			plannerID := uuid.New()

			_, err := svc.CreateSession(context.Background(), plannerID, tc.req)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tc.field]; !ok {
				t.Fatalf("expected field error for %q, got %v", tc.field, verr.Fields)
			}
			if len(svc.ListSessions(plannerID)) != 0 {
				t.Fatalf("invalid session entered the store")
			}
			if len(pub.messages) != 0 {
				t.Fatalf("expected no push for rejected session")
			}
			if _, _, err := svc.ExportAll(plannerID); err == nil {
				t.Fatalf("expected nothing to export")
			}
		})
	}
}

func TestDeleteSession(t *testing.T) {
	svc, pub := newTestService(t)
	plannerID := uuid.New()
	ctx := context.Background()

	s, _ := svc.CreateSession(ctx, plannerID, models.CreateSessionRequest{Subject: "Art", StartTime: "2024-01-10T09:00"})

	if svc.DeleteSession(ctx, plannerID, "missing") {
		t.Fatalf("expected false for unknown id")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected no push for a no-op delete")
	}
	if !svc.DeleteSession(ctx, plannerID, s.ID) {
		t.Fatalf("expected delete to succeed")
	}
	if len(svc.ListSessions(plannerID)) != 0 {
		t.Fatalf("expected empty planner")
	}
}

func TestExportAll_ChronologicalAndBulkName(t *testing.T) {
	svc, _ := newTestService(t)
	plannerID := uuid.New()
	ctx := context.Background()

	svc.CreateSession(ctx, plannerID, models.CreateSessionRequest{Subject: "Later", StartTime: "2024-01-12T09:00"})
	svc.CreateSession(ctx, plannerID, models.CreateSessionRequest{Subject: "Sooner", StartTime: "2024-01-11T09:00"})

	content, filename, err := svc.ExportAll(plannerID)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if filename != "study-flow-sessions.ics" {
		t.Fatalf("unexpected filename %q", filename)
	}
	if strings.Index(content, "SUMMARY:Study: Sooner") > strings.Index(content, "SUMMARY:Study: Later") {
		t.Fatalf("expected chronological export order")
	}
}

func TestExportAll_EmptyIsConflict(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.ExportAll(uuid.New())
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestExportSession(t *testing.T) {
	svc, _ := newTestService(t)
	plannerID := uuid.New()

	s, _ := svc.CreateSession(context.Background(), plannerID, models.CreateSessionRequest{
		Subject: "Quantum   Physics", StartTime: "2024-01-10T09:00",
	})

	content, filename, err := svc.ExportSession(plannerID, s.ID)
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if filename != "study-quantum-physics.ics" {
		t.Fatalf("unexpected filename %q", filename)
	}
	if strings.Count(content, "BEGIN:VEVENT") != 1 {
		t.Fatalf("expected one event")
	}

	_, _, err = svc.ExportSession(plannerID, "nope")
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestImportCalendar(t *testing.T) {
	svc, pub := newTestService(t)
	plannerID := uuid.New()
	ctx := context.Background()

	existing, _ := svc.CreateSession(ctx, plannerID, models.CreateSessionRequest{Subject: "Art", StartTime: "2024-01-10T09:00"})

	doc := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//StudyFlow AI//Study Planner//EN",
		"BEGIN:VEVENT",
		"UID:" + existing.ID + "@studyflow.ai",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240111T090000Z",
		"DTEND:20240111T100000Z",
		"SUMMARY:Study: Music",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:marathon@studyflow.ai",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240111T090000Z",
		"DTEND:20240113T090000Z",
		"SUMMARY:Study: Everything",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	result, err := svc.ImportCalendar(ctx, plannerID, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ImportCalendar: %v", err)
	}
	if len(result.Imported) != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 imported and 1 skipped, got %+v", result)
	}
	if result.Imported[0].ID == existing.ID {
		t.Fatalf("expected colliding id to be replaced")
	}
	if len(svc.ListSessions(plannerID)) != 2 {
		t.Fatalf("expected 2 sessions after import")
	}
	if len(pub.messages) != 2 {
		t.Fatalf("expected pushes for create and import, got %d", len(pub.messages))
	}

	_, err = svc.ImportCalendar(ctx, plannerID, strings.NewReader("garbage"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for garbage, got %v", err)
	}
}

func TestParseStartTime(t *testing.T) {
	berlin := time.FixedZone("CET", 60*60)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-10T09:00", time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), false},
		{"2024-01-10T09:00:30", time.Date(2024, 1, 10, 8, 0, 30, 0, time.UTC), false},
		{"2024-01-10T09:00:00Z", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), false},
		{"2024-01-10T09:00:00-05:00", time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC), false},
		{"10/01/2024 9am", time.Time{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseStartTime(tc.in, berlin)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got.UTC())
			}
		})
	}
}

func TestIsPathSegment(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"3f1c2a", true},
		{"s1", true},
		{"team/standup", false},
		{"a b", false},
		{"50%", false},
		{"why?", false},
		{"", false},
		{"..", false},
	}

	for _, tt := range tests {
		if got := isPathSegment(tt.id); got != tt.want {
			t.Errorf("isPathSegment(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
