package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/service/calendars"
	"timemesh/backend/internal/service/chat"
	"timemesh/backend/internal/service/events"
	"timemesh/backend/internal/service/feed"
	"timemesh/backend/internal/store"
)

type feedService interface {
	ListEvents(ctx context.Context, userID uuid.UUID, window *domain.Window) (feed.Feed, error)
}

type eventsService interface {
	Create(ctx context.Context, in events.CreateInput) (domain.Event, error)
	Update(ctx context.Context, userID, eventID uuid.UUID, in events.UpdateInput) (domain.Event, error)
	Delete(ctx context.Context, userID, eventID uuid.UUID) error
}

type calendarsService interface {
	Create(ctx context.Context, ownerID uuid.UUID, title, description string) (domain.Calendar, error)
	List(ctx context.Context, userID uuid.UUID) (calendars.Overview, error)
	Delete(ctx context.Context, ownerID, calendarID uuid.UUID) error
	Share(ctx context.Context, ownerID, calendarID uuid.UUID, userIDs []uuid.UUID) error
}

type friendsService interface {
	Add(ctx context.Context, userID, friendID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
	Remove(ctx context.Context, userID, friendID uuid.UUID) error
}

type invitesService interface {
	Create(ctx context.Context, ownerID, calendarID uuid.UUID, email string) (domain.CalendarInvite, error)
	Respond(ctx context.Context, userID uuid.UUID, action, token string) (domain.CalendarInvite, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]domain.CalendarInvite, error)
}

type chatService interface {
	Chat(ctx context.Context, userID uuid.UUID, history []chat.Message) (chat.Result, error)
}

type Server struct {
	feed      feedService
	events    eventsService
	calendars calendarsService
	friends   friendsService
	invites   invitesService
	chat      chatService

	ready func(ctx context.Context) error
	loc   *time.Location
	log   *slog.Logger
}

type ServerConfig struct {
	Feed      feedService
	Events    eventsService
	Calendars calendarsService
	Friends   friendsService
	Invites   invitesService
	Chat      chatService

	// Ready reports whether downstream dependencies (the database) are
	// reachable; used by /readyz.
	Ready func(ctx context.Context) error

	// Location is attached to zone-less timestamps arriving on the API.
	Location *time.Location

	Log *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		feed:      cfg.Feed,
		events:    cfg.Events,
		calendars: cfg.Calendars,
		friends:   cfg.Friends,
		invites:   cfg.Invites,
		chat:      cfg.Chat,
		ready:     cfg.Ready,
		loc:       loc,
		log:       log.With(slog.String("component", "http")),
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	mux.HandleFunc("GET /api/calendars", s.handleListCalendars)
	mux.HandleFunc("POST /api/calendars", s.handleCreateCalendar)
	mux.HandleFunc("DELETE /api/calendars/{id}", s.handleDeleteCalendar)
	mux.HandleFunc("POST /api/calendars/{id}/share", s.handleShareCalendar)

	mux.HandleFunc("GET /api/friends", s.handleListFriends)
	mux.HandleFunc("POST /api/friends", s.handleAddFriend)
	mux.HandleFunc("DELETE /api/friends/{id}", s.handleRemoveFriend)

	mux.HandleFunc("GET /api/invitations", s.handleListInvites)
	mux.HandleFunc("POST /api/invitations", s.handleCreateInvite)
	mux.HandleFunc("POST /api/invitations/respond", s.handleRespondInvite)

	mux.HandleFunc("POST /api/chat", s.handleChat)

	var h http.Handler = mux
	h = BodyLimit(1 << 20)(h)
	h = RequestLog(s.log)(h)
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			WriteProblem(w, http.StatusServiceUnavailable, "not ready", "database not reachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// userID resolves the authenticated user from the X-User-ID header set
// by the fronting auth layer.
func (s *Server) userID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := s.userID(r)
	if !ok {
		WriteProblem(w, http.StatusUnauthorized, "unauthorized", "missing or invalid X-User-ID")
	}
	return id, ok
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// parseTimestamp accepts RFC 3339 or a zone-less ISO timestamp, the
// latter interpreted in the server's default zone.
func (s *Server) parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, s.loc)
}

// parseWindow reads optional start/end date query parameters. The end
// date is inclusive on the wire and becomes an exclusive instant by
// advancing one day.
func (s *Server) parseWindow(r *http.Request) (*domain.Window, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" && endStr == "" {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, service.NewValidationError("start and end must be supplied together")
	}
	start, err := time.ParseInLocation("2006-01-02", startStr, s.loc)
	if err != nil {
		return nil, service.NewValidationError("start must be a YYYY-MM-DD date")
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, s.loc)
	if err != nil {
		return nil, service.NewValidationError("end must be a YYYY-MM-DD date")
	}
	if end.Before(start) {
		return nil, service.NewValidationError("end must not be before start")
	}
	return &domain.Window{Start: start, End: end.AddDate(0, 0, 1)}, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *service.ValidationError
	var ruleErr *domain.MalformedRuleError

	switch {
	case errors.As(err, &vErr):
		WriteProblem(w, http.StatusBadRequest, "validation failed", vErr.Error())
	case errors.As(err, &ruleErr):
		WriteProblem(w, http.StatusBadRequest, "malformed recurrence rule", ruleErr.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, store.ErrForbidden):
		WriteProblem(w, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, store.ErrConflict):
		WriteProblem(w, http.StatusConflict, "conflict", "")
	default:
		s.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		WriteProblem(w, http.StatusInternalServerError, "internal error", "")
	}
}
