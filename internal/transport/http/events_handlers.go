package transporthttp

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/service/events"
)

type eventRequest struct {
	CalendarID  string   `json:"cal_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Color       string   `json:"color"`
	RepeatType  string   `json:"repeat_type"`
	RepeatDays  []string `json:"repeat_days"`
	RepeatUntil string   `json:"repeat_until"`
}

type eventResponse struct {
	ID          uuid.UUID  `json:"event_id"`
	CalendarID  uuid.UUID  `json:"cal_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	BgColor     string     `json:"bg_color"`
	RepeatType  string     `json:"repeat_type"`
	RepeatDays  []string   `json:"repeat_days,omitempty"`
	RepeatUntil *time.Time `json:"repeat_until,omitempty"`
}

func toEventResponse(ev domain.Event) eventResponse {
	return eventResponse{
		ID:          ev.ID,
		CalendarID:  ev.CalendarID,
		Title:       ev.Title,
		Description: ev.Description,
		Start:       ev.StartTime,
		End:         ev.EndTime,
		BgColor:     ev.BgColor,
		RepeatType:  string(ev.RepeatType),
		RepeatDays:  ev.RepeatDays,
		RepeatUntil: ev.RepeatUntil,
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	window, err := s.parseWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.feed.ListEvents(r.Context(), userID, window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// eventFields converts the wire shape into the service's terms. The
// recurrence tags are validated here so a typo never reaches the store.
func (s *Server) eventFields(req eventRequest) (title, description, color string, start, end time.Time, repeat domain.RepeatType, days []string, until *time.Time, err error) {
	start, err = s.parseTimestamp(req.Start)
	if err != nil {
		err = service.NewValidationError("start must be an ISO 8601 timestamp")
		return
	}
	end, err = s.parseTimestamp(req.End)
	if err != nil {
		err = service.NewValidationError("end must be an ISO 8601 timestamp")
		return
	}
	repeat = domain.RepeatNone
	if req.RepeatType != "" {
		repeat, err = domain.ParseRepeatType(req.RepeatType)
		if err != nil {
			return
		}
	}
	if req.RepeatUntil != "" {
		u, uErr := s.parseTimestamp(req.RepeatUntil)
		if uErr != nil {
			err = service.NewValidationError("repeat_until must be an ISO 8601 timestamp")
			return
		}
		until = &u
	}
	title = req.Title
	description = req.Description
	color = req.Color
	days = req.RepeatDays
	return
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	calendarID, err := uuid.Parse(req.CalendarID)
	if err != nil {
		s.writeError(w, r, service.NewValidationError("cal_id must be a UUID"))
		return
	}
	title, description, color, start, end, repeat, days, until, err := s.eventFields(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.events.Create(r.Context(), events.CreateInput{
		UserID:      userID,
		CalendarID:  calendarID,
		Title:       title,
		Description: description,
		StartTime:   start,
		EndTime:     end,
		BgColor:     color,
		RepeatType:  repeat,
		RepeatDays:  days,
		RepeatUntil: until,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	eventID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, service.NewValidationError("event id must be a UUID"))
		return
	}
	var req eventRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	title, description, color, start, end, repeat, days, until, err := s.eventFields(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.events.Update(r.Context(), userID, eventID, events.UpdateInput{
		Title:       title,
		Description: description,
		StartTime:   start,
		EndTime:     end,
		BgColor:     color,
		RepeatType:  repeat,
		RepeatDays:  days,
		RepeatUntil: until,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	eventID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, service.NewValidationError("event id must be a UUID"))
		return
	}
	if err := s.events.Delete(r.Context(), userID, eventID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
