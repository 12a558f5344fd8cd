package invites

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/store"
)

// Mailer delivers invitation emails. Delivery is an external concern;
// implementations may queue, send, or just record the invite.
type Mailer interface {
	SendInvite(ctx context.Context, to, calendarTitle, token string) error
}

// LogMailer records invites in the log instead of sending email.
type LogMailer struct {
	From string
	Log  *slog.Logger
}

func (m *LogMailer) SendInvite(ctx context.Context, to, calendarTitle, token string) error {
	log := m.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("calendar invite issued",
		slog.String("from", m.From),
		slog.String("to", to),
		slog.String("calendar_title", calendarTitle),
		slog.String("token", token),
	)
	return nil
}

type Service struct {
	invites   store.InviteRepository
	calendars store.CalendarRepository
	users     store.UserRepository
	mailer    Mailer
	log       *slog.Logger
}

func NewService(invites store.InviteRepository, calendars store.CalendarRepository, users store.UserRepository, mailer Mailer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		invites:   invites,
		calendars: calendars,
		users:     users,
		mailer:    mailer,
		log:       log.With(slog.String("component", "invites")),
	}
}

func (s *Service) Create(ctx context.Context, ownerID, calendarID uuid.UUID, email string) (domain.CalendarInvite, error) {
	if ownerID == uuid.Nil {
		return domain.CalendarInvite{}, service.NewValidationError("user_id is required")
	}
	if calendarID == uuid.Nil {
		return domain.CalendarInvite{}, service.NewValidationError("cal_id is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.CalendarInvite{}, service.NewValidationError("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.CalendarInvite{}, service.NewValidationError("email is invalid")
	}

	cal, err := s.calendars.Get(ctx, calendarID)
	if err != nil {
		return domain.CalendarInvite{}, err
	}
	if cal.OwnerID != ownerID {
		return domain.CalendarInvite{}, store.ErrForbidden
	}

	token, err := NewToken()
	if err != nil {
		return domain.CalendarInvite{}, err
	}

	invite, err := s.invites.Create(ctx, domain.CalendarInvite{
		CalendarID: calendarID,
		Email:      email,
		InvitedBy:  ownerID,
		Token:      token,
	})
	if err != nil {
		return domain.CalendarInvite{}, err
	}

	if err := s.mailer.SendInvite(ctx, email, cal.Title, invite.Token); err != nil {
		// The invite exists and can still be accepted via its token.
		s.log.Warn("invite email delivery failed",
			slog.String("email", email),
			slog.String("calendar_id", calendarID.String()),
			slog.Any("err", err),
		)
	}

	return invite, nil
}

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// Respond accepts or declines an invite on behalf of the authenticated
// user. The invite must be addressed to the user's email and must not
// have been responded to already.
func (s *Service) Respond(ctx context.Context, userID uuid.UUID, action, token string) (domain.CalendarInvite, error) {
	if userID == uuid.Nil {
		return domain.CalendarInvite{}, service.NewValidationError("user_id is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.CalendarInvite{}, service.NewValidationError("token is required")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.CalendarInvite{}, err
	}

	switch action {
	case ActionAccept:
		return s.invites.Accept(ctx, token, user.Email, userID)
	case ActionDecline:
		return s.invites.Decline(ctx, token, user.Email)
	default:
		return domain.CalendarInvite{}, service.NewValidationError("action must be 'accept' or 'decline'")
	}
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.CalendarInvite, error) {
	if userID == uuid.Nil {
		return nil, service.NewValidationError("user_id is required")
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.invites.ListByEmail(ctx, user.Email)
}

// NewToken returns a 32-character random invite token.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
