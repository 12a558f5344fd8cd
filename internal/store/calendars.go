package store

import (
	"context"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
)

type CalendarRepository interface {
	Create(ctx context.Context, cal domain.Calendar) (domain.Calendar, error)
	Get(ctx context.Context, calendarID uuid.UUID) (domain.Calendar, error)
	Delete(ctx context.Context, ownerID, calendarID uuid.UUID) error

	ListOwned(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error)
	ListShared(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error)

	OwnedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	SharedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// SetSharedUsers replaces the calendar's share set.
	SetSharedUsers(ctx context.Context, calendarID uuid.UUID, userIDs []uuid.UUID) error
	AddShare(ctx context.Context, calendarID, userID uuid.UUID) error
}
