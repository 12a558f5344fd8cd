package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/store"
)

type EventRepo struct {
	db *bun.DB
}

func NewEventRepo(db *bun.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	m := event
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Event{}, mapPgError(err)
	}
	return m, nil
}

func (r *EventRepo) Get(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	var m domain.Event
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, store.ErrNotFound
		}
		return domain.Event{}, err
	}
	return m, nil
}

func (r *EventRepo) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	m := event
	res, err := r.db.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Event{}, mapPgError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Event{}, err
	}
	if affected == 0 {
		return domain.Event{}, store.ErrNotFound
	}
	return m, nil
}

func (r *EventRepo) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Event)(nil)).
		Where("user_id = ?", userID).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *EventRepo) ListByCalendars(ctx context.Context, calendarIDs []uuid.UUID, window *domain.Window) ([]domain.Event, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}

	q := r.db.NewSelect().
		Model((*domain.Event)(nil)).
		Where("calendar_id IN (?)", bun.In(calendarIDs)).
		OrderExpr("start_time ASC")

	if window != nil {
		// Coarse cut only: a recurring event's base interval may lie
		// before the window while its occurrences fall inside it, so
		// recurring rows are bounded by the window end alone.
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.
						Where("repeat_type = ?", domain.RepeatNone).
						Where("start_time < ?", window.End).
						Where("end_time >= ?", window.Start)
				}).
				WhereOr("repeat_type != ? AND start_time < ?", domain.RepeatNone, window.End)
		})
	}

	var rows []domain.Event
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepo) ListUpcomingByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Event, error) {
	var rows []domain.Event
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("start_time >= ?", from).
		Where("start_time < ?", to).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepo) CreateMany(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	out := make([]domain.Event, len(events))
	copy(out, events)
	_, err := r.db.NewInsert().Model(&out).Exec(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503":
			return store.ErrNotFound
		}
	}
	return err
}
