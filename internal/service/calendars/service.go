package calendars

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/store"
)

const DefaultTitle = "My Calendar"

type Service struct {
	calendars store.CalendarRepository
}

func NewService(calendars store.CalendarRepository) *Service {
	return &Service{calendars: calendars}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, title, description string) (domain.Calendar, error) {
	if ownerID == uuid.Nil {
		return domain.Calendar{}, service.NewValidationError("user_id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return s.calendars.Create(ctx, domain.Calendar{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
	})
}

type Overview struct {
	Owned  []domain.Calendar `json:"owned"`
	Shared []domain.Calendar `json:"shared"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) (Overview, error) {
	if userID == uuid.Nil {
		return Overview{}, service.NewValidationError("user_id is required")
	}
	owned, err := s.calendars.ListOwned(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	shared, err := s.calendars.ListShared(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Owned: owned, Shared: shared}, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, calendarID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return service.NewValidationError("user_id is required")
	}
	if calendarID == uuid.Nil {
		return service.NewValidationError("cal_id is required")
	}
	return s.calendars.Delete(ctx, ownerID, calendarID)
}

// Share replaces the calendar's share set. Only the owner may share.
func (s *Service) Share(ctx context.Context, ownerID, calendarID uuid.UUID, userIDs []uuid.UUID) error {
	if calendarID == uuid.Nil {
		return service.NewValidationError("cal_id is required")
	}
	if len(userIDs) == 0 {
		return service.NewValidationError("user_ids is required")
	}

	cal, err := s.calendars.Get(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal.OwnerID != ownerID {
		return store.ErrForbidden
	}

	deduped := make([]uuid.UUID, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil {
			return service.NewValidationError("user_ids contains an empty id")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	return s.calendars.SetSharedUsers(ctx, calendarID, deduped)
}
