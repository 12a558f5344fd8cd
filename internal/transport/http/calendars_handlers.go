package transporthttp

import (
	"net/http"

	"github.com/google/uuid"

	"timemesh/backend/internal/service"
)

type calendarRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type shareRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	overview, err := s.calendars.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req calendarRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	cal, err := s.calendars.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cal)
}

func (s *Server) handleDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	calendarID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, service.NewValidationError("calendar id must be a UUID"))
		return
	}
	if err := s.calendars.Delete(r.Context(), userID, calendarID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	calendarID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, service.NewValidationError("calendar id must be a UUID"))
		return
	}
	var req shareRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.writeError(w, r, service.NewValidationError("user_ids must be UUIDs"))
			return
		}
		userIDs = append(userIDs, id)
	}
	if err := s.calendars.Share(r.Context(), userID, calendarID, userIDs); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "shared"})
}
