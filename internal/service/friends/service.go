package friends

import (
	"context"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/store"
)

type Service struct {
	friends store.FriendRepository
	users   store.UserRepository
}

func NewService(friends store.FriendRepository, users store.UserRepository) *Service {
	return &Service{friends: friends, users: users}
}

// Add records a one-way friendship: the friend does not automatically
// know the user back.
func (s *Service) Add(ctx context.Context, userID, friendID uuid.UUID) error {
	if userID == uuid.Nil {
		return service.NewValidationError("user_id is required")
	}
	if friendID == uuid.Nil {
		return service.NewValidationError("friend_id is required")
	}
	if userID == friendID {
		return service.NewValidationError("you cannot add yourself as a friend")
	}

	if _, err := s.users.Get(ctx, friendID); err != nil {
		return err
	}
	return s.friends.Add(ctx, userID, friendID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	if userID == uuid.Nil {
		return nil, service.NewValidationError("user_id is required")
	}
	return s.friends.List(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	if userID == uuid.Nil {
		return service.NewValidationError("user_id is required")
	}
	if friendID == uuid.Nil {
		return service.NewValidationError("friend_id is required")
	}
	return s.friends.Remove(ctx, userID, friendID)
}
