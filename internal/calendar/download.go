package calendar

import (
	"log"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

const (
	ContentType  = "text/calendar; charset=utf-8"
	BulkFilename = "study-flow-sessions.ics"

	filenamePrefix = "study-"
	fileExtension  = ".ics"
)

var whitespaceRun = regexp.MustCompile(`[\s\x0B\p{Z}\x{FEFF}]+`)

// SessionFilename derives the download name for a single-session export:
// "Quantum  Physics" becomes "study-quantum-physics.ics".
func SessionFilename(subject string) string {
	return filenamePrefix + whitespaceRun.ReplaceAllString(strings.ToLower(subject), "-") + fileExtension
}

// Download offers content to the client as a calendar file attachment.
// Write failures are logged and otherwise ignored; the client has already
// gone by the time they surface.
func Download(w http.ResponseWriter, content, filename string) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = mime.FormatMediaType("attachment", map[string]string{"filename": BulkFilename})
	}

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(content)); err != nil {
		log.Printf("Calendar download %q failed: %v", filename, err)
	}
}
