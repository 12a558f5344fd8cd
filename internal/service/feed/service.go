package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/store"
)

// EventView is the serialized event handed to the HTTP layer, augmented
// with the expanded repeat instants for recurring events.
type EventView struct {
	ID          uuid.UUID         `json:"event_id"`
	CalendarID  uuid.UUID         `json:"cal_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	BgColor     string            `json:"bg_color"`
	RepeatType  domain.RepeatType `json:"repeat_type"`
	RepeatDays  []string          `json:"repeat_days,omitempty"`
	RepeatUntil *time.Time        `json:"repeat_until,omitempty"`
	Occurrences []time.Time       `json:"occurrences,omitempty"`
}

type Feed struct {
	Events []EventView `json:"events"`
	// Skipped counts events dropped because their expansion failed.
	Skipped int `json:"skipped,omitempty"`
}

type Service struct {
	calendars      store.CalendarRepository
	events         store.EventRepository
	log            *slog.Logger
	maxOccurrences int
}

func NewService(calendars store.CalendarRepository, events store.EventRepository, log *slog.Logger, maxOccurrences int) *Service {
	if log == nil {
		log = slog.Default()
	}
	if maxOccurrences <= 0 {
		maxOccurrences = domain.DefaultMaxOccurrences
	}
	return &Service{
		calendars:      calendars,
		events:         events,
		log:            log.With(slog.String("component", "feed")),
		maxOccurrences: maxOccurrences,
	}
}

// ListEvents assembles the merged feed of every event visible to the
// user: events from calendars the user owns plus calendars shared with
// them, each recurring event carrying its in-window repeat instants.
// A failed store fetch aborts the request; a failed single-event
// expansion only drops that event.
func (s *Service) ListEvents(ctx context.Context, userID uuid.UUID, window *domain.Window) (Feed, error) {
	owned, err := s.calendars.OwnedCalendarIDs(ctx, userID)
	if err != nil {
		return Feed{}, fmt.Errorf("load owned calendars: %w", err)
	}
	shared, err := s.calendars.SharedCalendarIDs(ctx, userID)
	if err != nil {
		return Feed{}, fmt.Errorf("load shared calendars: %w", err)
	}

	calendarIDs := unionIDs(owned, shared)
	if len(calendarIDs) == 0 {
		return Feed{Events: []EventView{}}, nil
	}

	events, err := s.events.ListByCalendars(ctx, calendarIDs, window)
	if err != nil {
		return Feed{}, fmt.Errorf("load events: %w", err)
	}

	views := make([]EventView, 0, len(events))
	skipped := 0

	for _, e := range events {
		if e.RepeatType == domain.RepeatNone {
			if window != nil && !window.OverlapsSpan(e.StartTime, e.Duration()) {
				continue
			}
			views = append(views, viewOf(e, nil))
			continue
		}

		occs, err := domain.GenerateOccurrences(e.StartTime, e.Rule(), s.maxOccurrences)
		if err != nil {
			skipped++
			s.log.Warn("event expansion failed",
				slog.String("event_id", e.ID.String()),
				slog.String("repeat_type", string(e.RepeatType)),
				slog.Any("err", err),
			)
			continue
		}
		occs = domain.FilterOccurrences(occs, e.Duration(), window)

		if window != nil && len(occs) == 0 && !window.OverlapsSpan(e.StartTime, e.Duration()) {
			continue
		}
		views = append(views, viewOf(e, occs))
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Start.Before(views[j].Start)
	})

	return Feed{Events: views, Skipped: skipped}, nil
}

func viewOf(e domain.Event, occs []time.Time) EventView {
	return EventView{
		ID:          e.ID,
		CalendarID:  e.CalendarID,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.StartTime,
		End:         e.EndTime,
		BgColor:     e.BgColor,
		RepeatType:  e.RepeatType,
		RepeatDays:  e.RepeatDays,
		RepeatUntil: e.RepeatUntil,
		Occurrences: occs,
	}
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(a)+len(b))
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
