package invites

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/store"
)

type fakeInviteRepo struct {
	createFn  func(ctx context.Context, invite domain.CalendarInvite) (domain.CalendarInvite, error)
	acceptFn  func(ctx context.Context, token, email string, userID uuid.UUID) (domain.CalendarInvite, error)
	declineFn func(ctx context.Context, token, email string) (domain.CalendarInvite, error)
	listFn    func(ctx context.Context, email string) ([]domain.CalendarInvite, error)
}

func (f *fakeInviteRepo) Create(ctx context.Context, invite domain.CalendarInvite) (domain.CalendarInvite, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, invite)
}

func (f *fakeInviteRepo) GetByToken(ctx context.Context, token string) (domain.CalendarInvite, error) {
	panic("GetByToken not configured")
}

func (f *fakeInviteRepo) ListByEmail(ctx context.Context, email string) ([]domain.CalendarInvite, error) {
	if f.listFn == nil {
		panic("ListByEmail not configured")
	}
	return f.listFn(ctx, email)
}

func (f *fakeInviteRepo) Accept(ctx context.Context, token, email string, userID uuid.UUID) (domain.CalendarInvite, error) {
	if f.acceptFn == nil {
		panic("Accept not configured")
	}
	return f.acceptFn(ctx, token, email, userID)
}

func (f *fakeInviteRepo) Decline(ctx context.Context, token, email string) (domain.CalendarInvite, error) {
	if f.declineFn == nil {
		panic("Decline not configured")
	}
	return f.declineFn(ctx, token, email)
}

type fakeCalendarRepo struct {
	getFn func(ctx context.Context, calendarID uuid.UUID) (domain.Calendar, error)
}

func (f *fakeCalendarRepo) Create(ctx context.Context, cal domain.Calendar) (domain.Calendar, error) {
	panic("Create not configured")
}

func (f *fakeCalendarRepo) Get(ctx context.Context, calendarID uuid.UUID) (domain.Calendar, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, calendarID)
}

func (f *fakeCalendarRepo) Delete(ctx context.Context, ownerID, calendarID uuid.UUID) error {
	panic("Delete not configured")
}

func (f *fakeCalendarRepo) ListOwned(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error) {
	panic("ListOwned not configured")
}

func (f *fakeCalendarRepo) ListShared(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error) {
	panic("ListShared not configured")
}

func (f *fakeCalendarRepo) OwnedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	panic("OwnedCalendarIDs not configured")
}

func (f *fakeCalendarRepo) SharedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	panic("SharedCalendarIDs not configured")
}

func (f *fakeCalendarRepo) SetSharedUsers(ctx context.Context, calendarID uuid.UUID, userIDs []uuid.UUID) error {
	panic("SetSharedUsers not configured")
}

func (f *fakeCalendarRepo) AddShare(ctx context.Context, calendarID, userID uuid.UUID) error {
	panic("AddShare not configured")
}

type fakeUserRepo struct {
	getFn func(ctx context.Context, userID uuid.UUID) (domain.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	panic("Create not configured")
}

func (f *fakeUserRepo) Get(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, userID)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	panic("GetByEmail not configured")
}

type fakeMailer struct {
	sendFn func(ctx context.Context, to, calendarTitle, token string) error
}

func (f *fakeMailer) SendInvite(ctx context.Context, to, calendarTitle, token string) error {
	if f.sendFn == nil {
		return nil
	}
	return f.sendFn(ctx, to, calendarTitle, token)
}

var (
	ownerID = uuid.MustParse("00000000-0000-7000-8000-000000000001")
	calID   = uuid.MustParse("00000000-0000-7000-8000-000000000002")
	userID  = uuid.MustParse("00000000-0000-7000-8000-000000000003")
)

func ownedCalendar() *fakeCalendarRepo {
	return &fakeCalendarRepo{
		getFn: func(ctx context.Context, calendarID uuid.UUID) (domain.Calendar, error) {
			return domain.Calendar{ID: calendarID, OwnerID: ownerID, Title: "Team"}, nil
		},
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32", len(a))
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatal("tokens should differ")
	}
}

func TestCreate_SendsMail(t *testing.T) {
	var stored domain.CalendarInvite
	repo := &fakeInviteRepo{
		createFn: func(ctx context.Context, invite domain.CalendarInvite) (domain.CalendarInvite, error) {
			stored = invite
			return invite, nil
		},
	}
	var mailedTo, mailedToken string
	mailer := &fakeMailer{
		sendFn: func(ctx context.Context, to, calendarTitle, token string) error {
			mailedTo, mailedToken = to, token
			return nil
		},
	}
	svc := NewService(repo, ownedCalendar(), &fakeUserRepo{}, mailer, nil)

	inv, err := svc.Create(context.Background(), ownerID, calID, "friend@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.Token) != 32 {
		t.Fatalf("token = %q, want 32 chars", inv.Token)
	}
	if stored.Email != "friend@example.com" || stored.InvitedBy != ownerID {
		t.Fatalf("stored = %+v", stored)
	}
	if mailedTo != "friend@example.com" || mailedToken != inv.Token {
		t.Fatalf("mailed (%q, %q)", mailedTo, mailedToken)
	}
}

func TestCreate_MailFailureIsNonFatal(t *testing.T) {
	repo := &fakeInviteRepo{
		createFn: func(ctx context.Context, invite domain.CalendarInvite) (domain.CalendarInvite, error) {
			return invite, nil
		},
	}
	mailer := &fakeMailer{
		sendFn: func(ctx context.Context, to, calendarTitle, token string) error {
			return errors.New("smtp down")
		},
	}
	svc := NewService(repo, ownedCalendar(), &fakeUserRepo{}, mailer, nil)

	if _, err := svc.Create(context.Background(), ownerID, calID, "friend@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_InvalidEmail(t *testing.T) {
	svc := NewService(&fakeInviteRepo{}, &fakeCalendarRepo{}, &fakeUserRepo{}, &fakeMailer{}, nil)

	for _, email := range []string{"", "   ", "not-an-address", "a@"} {
		_, err := svc.Create(context.Background(), ownerID, calID, email)
		var vErr *service.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%q: error = %v, want *service.ValidationError", email, err)
		}
	}
}

func TestCreate_NonOwnerForbidden(t *testing.T) {
	svc := NewService(&fakeInviteRepo{}, ownedCalendar(), &fakeUserRepo{}, &fakeMailer{}, nil)

	_, err := svc.Create(context.Background(), userID, calID, "friend@example.com")
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestRespond_AcceptUsesCallersEmail(t *testing.T) {
	users := &fakeUserRepo{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.User, error) {
			return domain.User{ID: id, Email: "me@example.com"}, nil
		},
	}
	var gotEmail string
	repo := &fakeInviteRepo{
		acceptFn: func(ctx context.Context, token, email string, uid uuid.UUID) (domain.CalendarInvite, error) {
			gotEmail = email
			return domain.CalendarInvite{Token: token, Accepted: true}, nil
		},
	}
	svc := NewService(repo, &fakeCalendarRepo{}, users, &fakeMailer{}, nil)

	inv, err := svc.Respond(context.Background(), userID, ActionAccept, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.Accepted {
		t.Fatalf("invite = %+v", inv)
	}
	if gotEmail != "me@example.com" {
		t.Fatalf("email = %q", gotEmail)
	}
}

func TestRespond_UnknownAction(t *testing.T) {
	users := &fakeUserRepo{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.User, error) {
			return domain.User{ID: id, Email: "me@example.com"}, nil
		},
	}
	svc := NewService(&fakeInviteRepo{}, &fakeCalendarRepo{}, users, &fakeMailer{}, nil)

	_, err := svc.Respond(context.Background(), userID, "maybe", "tok")
	var vErr *service.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *service.ValidationError", err)
	}
}

func TestListMine_FiltersByCallersEmail(t *testing.T) {
	users := &fakeUserRepo{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.User, error) {
			return domain.User{ID: id, Email: "me@example.com"}, nil
		},
	}
	repo := &fakeInviteRepo{
		listFn: func(ctx context.Context, email string) ([]domain.CalendarInvite, error) {
			if email != "me@example.com" {
				t.Errorf("email = %q", email)
			}
			return []domain.CalendarInvite{{Email: email}}, nil
		},
	}
	svc := NewService(repo, &fakeCalendarRepo{}, users, &fakeMailer{}, nil)

	got, err := svc.ListMine(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}
