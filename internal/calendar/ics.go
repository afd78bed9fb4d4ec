package calendar

import (
	"fmt"
	"strings"
	"time"

	"studyflow-backend/internal/models"
)

const (
	DefaultProduct   = "StudyFlow AI"
	DefaultComponent = "Study Planner"
	DefaultDomain    = "studyflow.ai"

	SummaryPrefix = "Study: "

	icsDateLayout = "20060102T150405Z"
	lineSep       = "\r\n"
)

// FormatICSDate renders t as a compact UTC timestamp (20240110T090000Z).
// Sub-second precision is dropped, never rounded.
func FormatICSDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(icsDateLayout)
}

// Exporter serializes study sessions into an iCalendar document.
type Exporter struct {
	Product   string
	Component string
	Domain    string
	Now       func() time.Time
}

func NewExporter(product, domain string) *Exporter {
	if product == "" {
		product = DefaultProduct
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return &Exporter{
		Product:   product,
		Component: DefaultComponent,
		Domain:    domain,
		Now:       time.Now,
	}
}

func (e *Exporter) ProductID() string {
	return fmt.Sprintf("-//%s//%s//EN", e.Product, e.Component)
}

func (e *Exporter) Description() string {
	return fmt.Sprintf("Focused study session scheduled via %s.", e.Product)
}

// Generate emits one VEVENT per session, in the order given. Callers sort.
// An empty slice yields a calendar with no events.
func (e *Exporter) Generate(sessions []models.StudySession) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + e.ProductID(),
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	for _, s := range sessions {
		lines = append(lines,
			"BEGIN:VEVENT",
			fmt.Sprintf("UID:%s@%s", s.ID, e.Domain),
			"DTSTAMP:"+FormatICSDate(e.now()),
			"DTSTART:"+FormatICSDate(s.StartTime),
			"DTEND:"+FormatICSDate(s.EndTime()),
			"SUMMARY:"+SummaryPrefix+singleLine(s.Subject),
			"DESCRIPTION:"+e.Description(),
			"STATUS:CONFIRMED",
			"END:VEVENT",
		)
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, lineSep)
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// singleLine keeps a subject on its content line.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}
