package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyflow-backend/internal/calendar"
	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/models"
	"studyflow-backend/internal/services"
)

const maxImportBytes = 1 << 20

type PlannerHandler struct {
	planner *services.PlannerService
	jwtAuth *middleware.JWTAuth
}

func NewPlannerHandler(planner *services.PlannerService, jwtAuth *middleware.JWTAuth) *PlannerHandler {
	return &PlannerHandler{
		planner: planner,
		jwtAuth: jwtAuth,
	}
}

// CreatePlanner issues a token for a brand-new, empty planner.
func (h *PlannerHandler) CreatePlanner(w http.ResponseWriter, r *http.Request) {
	plannerID := uuid.New()

	token, expiresAt, err := h.jwtAuth.GeneratePlannerToken(plannerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue planner token", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.PlannerTokenResponse{
		Token:     token,
		PlannerID: plannerID.String(),
		ExpiresAt: expiresAt,
	})
}

func (h *PlannerHandler) List(w http.ResponseWriter, r *http.Request) {
	plannerID := middleware.GetPlannerID(r.Context())

	sessions := h.planner.ListSessions(plannerID)
	writeJSON(w, http.StatusOK, models.SessionListResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

func (h *PlannerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	plannerID := middleware.GetPlannerID(r.Context())

	session, err := h.planner.CreateSession(r.Context(), plannerID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
	})
}

// Delete answers 204 whether or not the session existed.
func (h *PlannerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	plannerID := middleware.GetPlannerID(r.Context())
	h.planner.DeleteSession(r.Context(), plannerID, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlannerHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	plannerID := middleware.GetPlannerID(r.Context())

	content, filename, err := h.planner.ExportAll(plannerID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	calendar.Download(w, content, filename)
}

func (h *PlannerHandler) ExportOne(w http.ResponseWriter, r *http.Request) {
	plannerID := middleware.GetPlannerID(r.Context())

	content, filename, err := h.planner.ExportSession(plannerID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	calendar.Download(w, content, filename)
}

// Import accepts an .ics either as a multipart "file" field or as the raw body.
func (h *PlannerHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	data, err := readCalendarUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Calendar file is too large", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "An .ics file is required"}, r))
		return
	}

	plannerID := middleware.GetPlannerID(r.Context())

	result, err := h.planner.ImportCalendar(r.Context(), plannerID, bytes.NewReader(data))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func readCalendarUpload(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, errors.New("empty calendar upload")
		}
		return data, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
