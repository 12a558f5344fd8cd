package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
)

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	Get(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
	Update(ctx context.Context, event domain.Event) (domain.Event, error)
	Delete(ctx context.Context, userID, eventID uuid.UUID) error

	// ListByCalendars returns events belonging to any of the given
	// calendars. A non-nil window pre-filters on the base [start, end)
	// interval; this is a coarse cut, callers re-filter expanded
	// occurrences themselves.
	ListByCalendars(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error)

	// ListUpcomingByUser returns the user's events whose base start
	// falls within [from, to), ordered by start.
	ListUpcomingByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Event, error)

	CreateMany(ctx context.Context, events []domain.Event) ([]domain.Event, error)
}
