package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
)

type fakeCalendarRepo struct {
	ownedIDsFn  func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	sharedIDsFn func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

func (f *fakeCalendarRepo) Create(ctx context.Context, cal domain.Calendar) (domain.Calendar, error) {
	panic("Create not configured")
}

func (f *fakeCalendarRepo) Get(ctx context.Context, calendarID uuid.UUID) (domain.Calendar, error) {
	panic("Get not configured")
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
	if f.ownedIDsFn == nil {
		panic("OwnedCalendarIDs not configured")
	}
	return f.ownedIDsFn(ctx, userID)
}

func (f *fakeCalendarRepo) SharedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if f.sharedIDsFn == nil {
		panic("SharedCalendarIDs not configured")
	}
	return f.sharedIDsFn(ctx, userID)
}

func (f *fakeCalendarRepo) SetSharedUsers(ctx context.Context, calendarID uuid.UUID, userIDs []uuid.UUID) error {
	panic("SetSharedUsers not configured")
}

func (f *fakeCalendarRepo) AddShare(ctx context.Context, calendarID, userID uuid.UUID) error {
	panic("AddShare not configured")
}

type fakeEventRepo struct {
	listByCalendarsFn func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error)
}

func (f *fakeEventRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	panic("Create not configured")
}

func (f *fakeEventRepo) Get(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	panic("Get not configured")
}

func (f *fakeEventRepo) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	panic("Update not configured")
}

func (f *fakeEventRepo) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	panic("Delete not configured")
}

func (f *fakeEventRepo) ListByCalendars(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
	if f.listByCalendarsFn == nil {
		panic("ListByCalendars not configured")
	}
	return f.listByCalendarsFn(ctx, calendarIDs, window)
}

func (f *fakeEventRepo) ListUpcomingByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Event, error) {
	panic("ListUpcomingByUser not configured")
}

func (f *fakeEventRepo) CreateMany(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	panic("CreateMany not configured")
}

func idFrom(n byte) uuid.UUID {
	var b [16]byte
	b[15] = n
	b[6] = 0x70 // version 7 so the fixtures look like real IDs
	b[8] = 0x80
	id, _ := uuid.FromBytes(b[:])
	return id
}

func staticCalendars(ids ...uuid.UUID) *fakeCalendarRepo {
	return &fakeCalendarRepo{
		ownedIDsFn: func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
			return ids, nil
		},
		sharedIDsFn: func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
			return nil, nil
		},
	}
}

func TestListEvents_RecurringOccurrenceInsideWindow(t *testing.T) {
	calID := idFrom(1)
	userID := idFrom(9)

	// A daily event starting before the window; only occurrences on
	// window days should surface.
	event := domain.Event{
		ID:         idFrom(2),
		CalendarID: calID,
		UserID:     userID,
		Title:      "standup",
		StartTime:  time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
		RepeatType: domain.RepeatDaily,
	}
	events := &fakeEventRepo{
		listByCalendarsFn: func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
			return []domain.Event{event}, nil
		},
	}
	svc := NewService(staticCalendars(calID), events, nil, 0)

	window := &domain.Window{
		Start: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	got, err := svc.ListEvents(context.Background(), userID, window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(got.Events))
	}
	occs := got.Events[0].Occurrences
	if len(occs) != 1 {
		t.Fatalf("len(occurrences) = %d, want 1 (%v)", len(occs), occs)
	}
	want := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	if !occs[0].Equal(want) {
		t.Fatalf("occurrence = %v, want %v", occs[0], want)
	}
}

func TestListEvents_NonRecurringOutsideWindowDropped(t *testing.T) {
	calID := idFrom(1)
	userID := idFrom(9)

	inside := domain.Event{
		ID:         idFrom(2),
		CalendarID: calID,
		Title:      "kept",
		StartTime:  time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC),
		RepeatType: domain.RepeatNone,
	}
	outside := domain.Event{
		ID:         idFrom(3),
		CalendarID: calID,
		Title:      "dropped",
		StartTime:  time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		RepeatType: domain.RepeatNone,
	}
	events := &fakeEventRepo{
		listByCalendarsFn: func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
			return []domain.Event{outside, inside}, nil
		},
	}
	svc := NewService(staticCalendars(calID), events, nil, 0)

	window := &domain.Window{
		Start: time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	got, err := svc.ListEvents(context.Background(), userID, window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(got.Events))
	}
	if got.Events[0].Title != "kept" {
		t.Fatalf("title = %q, want %q", got.Events[0].Title, "kept")
	}
}

func TestListEvents_BadRuleSkipsEventOnly(t *testing.T) {
	calID := idFrom(1)
	userID := idFrom(9)

	bad := domain.Event{
		ID:         idFrom(2),
		CalendarID: calID,
		Title:      "broken",
		StartTime:  time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		RepeatType: domain.RepeatWeekly,
		RepeatDays: []string{"NOPE"},
	}
	good := domain.Event{
		ID:         idFrom(3),
		CalendarID: calID,
		Title:      "fine",
		StartTime:  time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC),
		RepeatType: domain.RepeatNone,
	}
	events := &fakeEventRepo{
		listByCalendarsFn: func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
			return []domain.Event{bad, good}, nil
		},
	}
	svc := NewService(staticCalendars(calID), events, nil, 0)

	got, err := svc.ListEvents(context.Background(), userID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(got.Events))
	}
	if got.Events[0].Title != "fine" {
		t.Fatalf("title = %q, want %q", got.Events[0].Title, "fine")
	}
	if got.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", got.Skipped)
	}
}

func TestListEvents_StoreErrorAborts(t *testing.T) {
	calID := idFrom(1)
	boom := errors.New("db down")
	events := &fakeEventRepo{
		listByCalendarsFn: func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
			return nil, boom
		},
	}
	svc := NewService(staticCalendars(calID), events, nil, 0)

	_, err := svc.ListEvents(context.Background(), idFrom(9), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
}

func TestListEvents_OwnedAndSharedDeduplicated(t *testing.T) {
	calID := idFrom(1)
	otherID := idFrom(2)

	var gotIDs []uuid.UUID
	calendars := &fakeCalendarRepo{
		ownedIDsFn: func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
			return []uuid.UUID{calID}, nil
		},
		sharedIDsFn: func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
			// The same calendar can come back through both paths when a
			// user is both owner and share target.
			return []uuid.UUID{calID, otherID}, nil
		},
	}
	events := &fakeEventRepo{
		listByCalendarsFn: func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
			gotIDs = calendarIDs
			return nil, nil
		},
	}
	svc := NewService(calendars, events, nil, 0)

	if _, err := svc.ListEvents(context.Background(), idFrom(9), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotIDs) != 2 {
		t.Fatalf("calendar IDs = %v, want 2 distinct", gotIDs)
	}
	if gotIDs[0] != calID || gotIDs[1] != otherID {
		t.Fatalf("calendar IDs = %v, want [%v %v]", gotIDs, calID, otherID)
	}
}

func TestListEvents_NoCalendarsShortCircuits(t *testing.T) {
	calendars := &fakeCalendarRepo{
		ownedIDsFn: func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
			return nil, nil
		},
		sharedIDsFn: func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
			return nil, nil
		},
	}
	svc := NewService(calendars, &fakeEventRepo{}, nil, 0)

	got, err := svc.ListEvents(context.Background(), idFrom(9), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Events) != 0 {
		t.Fatalf("len(events) = %d, want 0", len(got.Events))
	}
}

func TestListEvents_SortedByStart(t *testing.T) {
	calID := idFrom(1)

	later := domain.Event{
		ID:         idFrom(2),
		CalendarID: calID,
		Title:      "later",
		StartTime:  time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC),
		RepeatType: domain.RepeatNone,
	}
	earlier := domain.Event{
		ID:         idFrom(3),
		CalendarID: calID,
		Title:      "earlier",
		StartTime:  time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC),
		RepeatType: domain.RepeatNone,
	}
	events := &fakeEventRepo{
		listByCalendarsFn: func(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
			return []domain.Event{later, earlier}, nil
		},
	}
	svc := NewService(staticCalendars(calID), events, nil, 0)

	got, err := svc.ListEvents(context.Background(), idFrom(9), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(got.Events))
	}
	if got.Events[0].Title != "earlier" || got.Events[1].Title != "later" {
		t.Fatalf("order = [%q %q], want earlier then later", got.Events[0].Title, got.Events[1].Title)
	}
}
