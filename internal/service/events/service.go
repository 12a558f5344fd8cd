package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/store"
)

type Service struct {
	events         store.EventRepository
	calendars      store.CalendarRepository
	maxOccurrences int
}

func NewService(events store.EventRepository, calendars store.CalendarRepository, maxOccurrences int) *Service {
	if maxOccurrences <= 0 {
		maxOccurrences = domain.DefaultMaxOccurrences
	}
	return &Service{events: events, calendars: calendars, maxOccurrences: maxOccurrences}
}

type CreateInput struct {
	UserID      uuid.UUID
	CalendarID  uuid.UUID
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	BgColor     string
	RepeatType  domain.RepeatType
	RepeatDays  []string
	RepeatUntil *time.Time
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Event{}, service.NewValidationError("title is required")
	}
	if in.UserID == uuid.Nil {
		return domain.Event{}, service.NewValidationError("user_id is required")
	}
	if in.CalendarID == uuid.Nil {
		return domain.Event{}, service.NewValidationError("cal_id is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.Event{}, service.NewValidationError("end must be after start")
	}

	rule := domain.RepeatRule{Type: in.RepeatType, Days: in.RepeatDays, Until: in.RepeatUntil}
	if rule.Type == "" {
		rule.Type = domain.RepeatNone
	}
	if err := rule.Validate(); err != nil {
		return domain.Event{}, err
	}

	if err := s.ensureCalendarAccess(ctx, in.UserID, in.CalendarID); err != nil {
		return domain.Event{}, err
	}

	event := domain.Event{
		CalendarID:  in.CalendarID,
		UserID:      in.UserID,
		Title:       title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		BgColor:     in.BgColor,
		RepeatType:  rule.Type,
		RepeatDays:  in.RepeatDays,
		RepeatUntil: in.RepeatUntil,
	}

	cached, err := domain.GenerateOccurrences(event.StartTime, rule, s.maxOccurrences)
	if err != nil {
		return domain.Event{}, err
	}
	event.CachedOccurrences = cached

	return s.events.Create(ctx, event)
}

type UpdateInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	BgColor     string
	RepeatType  domain.RepeatType
	RepeatDays  []string
	RepeatUntil *time.Time
}

// Update replaces the event's mutable fields. When a rule-affecting
// field changes, the cached occurrence list is thrown away and
// regenerated; it is never patched incrementally.
func (s *Service) Update(ctx context.Context, userID, eventID uuid.UUID, in UpdateInput) (domain.Event, error) {
	if userID == uuid.Nil {
		return domain.Event{}, service.NewValidationError("user_id is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Event{}, service.NewValidationError("title is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.Event{}, service.NewValidationError("end must be after start")
	}

	rule := domain.RepeatRule{Type: in.RepeatType, Days: in.RepeatDays, Until: in.RepeatUntil}
	if rule.Type == "" {
		rule.Type = domain.RepeatNone
	}
	if err := rule.Validate(); err != nil {
		return domain.Event{}, err
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event.UserID != userID {
		return domain.Event{}, store.ErrForbidden
	}

	ruleChanged := !event.StartTime.Equal(in.StartTime) ||
		!event.EndTime.Equal(in.EndTime) ||
		event.RepeatType != rule.Type ||
		!equalDays(event.RepeatDays, in.RepeatDays) ||
		!equalUntil(event.RepeatUntil, in.RepeatUntil)

	event.Title = title
	event.Description = in.Description
	event.StartTime = in.StartTime
	event.EndTime = in.EndTime
	if in.BgColor != "" {
		event.BgColor = in.BgColor
	}
	event.RepeatType = rule.Type
	event.RepeatDays = in.RepeatDays
	event.RepeatUntil = in.RepeatUntil

	if ruleChanged {
		cached, err := domain.GenerateOccurrences(event.StartTime, rule, s.maxOccurrences)
		if err != nil {
			return domain.Event{}, err
		}
		event.CachedOccurrences = cached
	}

	return s.events.Update(ctx, event)
}

func (s *Service) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	if userID == uuid.Nil {
		return service.NewValidationError("user_id is required")
	}
	if eventID == uuid.Nil {
		return service.NewValidationError("event_id is required")
	}
	return s.events.Delete(ctx, userID, eventID)
}

func (s *Service) ensureCalendarAccess(ctx context.Context, userID, calendarID uuid.UUID) error {
	cal, err := s.calendars.Get(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal.OwnerID == userID {
		return nil
	}
	shared, err := s.calendars.SharedCalendarIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range shared {
		if id == calendarID {
			return nil
		}
	}
	return store.ErrForbidden
}

func equalDays(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalUntil(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
