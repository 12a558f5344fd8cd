package store

import (
	"context"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Get(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

type FriendRepository interface {
	// Add records a unidirectional friendship; an existing pair is
	// ErrConflict.
	Add(ctx context.Context, userID, friendID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
	Remove(ctx context.Context, userID, friendID uuid.UUID) error
}

type InviteRepository interface {
	Create(ctx context.Context, invite domain.CalendarInvite) (domain.CalendarInvite, error)
	GetByToken(ctx context.Context, token string) (domain.CalendarInvite, error)
	ListByEmail(ctx context.Context, email string) ([]domain.CalendarInvite, error)

	// Accept marks the invite accepted and grants the user a calendar
	// share, atomically. Already-responded invites are ErrConflict.
	Accept(ctx context.Context, token string, email string, userID uuid.UUID) (domain.CalendarInvite, error)
	Decline(ctx context.Context, token string, email string) (domain.CalendarInvite, error)
}
