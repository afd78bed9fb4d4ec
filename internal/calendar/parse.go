package calendar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"studyflow-backend/internal/models"
)

// ParseSessions reads every VEVENT of an iCalendar stream back into study
// sessions. Floating times are read in loc. Events without a usable start,
// end or subject are counted in skipped rather than failing the import.
func ParseSessions(r io.Reader, loc *time.Location) (sessions []models.StudySession, skipped int, err error) {
	if loc == nil {
		loc = time.Local
	}

	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, ev := range cal.Events() {
			s, ok := parseEvent(ev.Component, loc)
			if !ok {
				skipped++
				continue
			}
			sessions = append(sessions, s)
		}
	}

	return sessions, skipped, nil
}

func parseEvent(comp *ical.Component, loc *time.Location) (models.StudySession, bool) {
	var s models.StudySession

	if uidProp := comp.Props.Get(ical.PropUID); uidProp != nil {
		s.ID = uidProp.Value
		if at := strings.LastIndex(s.ID, "@"); at > 0 {
			s.ID = s.ID[:at]
		}
	}

	if summaryProp := comp.Props.Get(ical.PropSummary); summaryProp != nil {
		s.Subject = strings.TrimSpace(strings.TrimPrefix(summaryProp.Value, SummaryPrefix))
	}
	if s.Subject == "" {
		return s, false
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	endProp := comp.Props.Get(ical.PropDateTimeEnd)
	if startProp == nil || endProp == nil {
		return s, false
	}

	start, err := startProp.DateTime(loc)
	if err != nil {
		return s, false
	}
	end, err := endProp.DateTime(loc)
	if err != nil {
		return s, false
	}

	s.StartTime = start
	s.DurationMinutes = int(end.Sub(start) / time.Minute)
	if s.DurationMinutes <= 0 {
		return s, false
	}

	return s, true
}
