package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/store"
)

type CalendarRepo struct {
	db *bun.DB
}

func NewCalendarRepo(db *bun.DB) *CalendarRepo {
	return &CalendarRepo{db: db}
}

func (r *CalendarRepo) Create(ctx context.Context, cal domain.Calendar) (domain.Calendar, error) {
	m := cal
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Calendar{}, mapPgError(err)
	}
	return m, nil
}

func (r *CalendarRepo) Get(ctx context.Context, calendarID uuid.UUID) (domain.Calendar, error) {
	var m domain.Calendar
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", calendarID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Calendar{}, store.ErrNotFound
		}
		return domain.Calendar{}, err
	}
	return m, nil
}

func (r *CalendarRepo) Delete(ctx context.Context, ownerID, calendarID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Calendar)(nil)).
		Where("owner_id = ?", ownerID).
		Where("id = ?", calendarID).
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

func (r *CalendarRepo) ListOwned(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error) {
	var rows []domain.Calendar
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", userID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CalendarRepo) ListShared(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error) {
	var rows []domain.Calendar
	err := r.db.NewSelect().
		Model(&rows).
		Join("JOIN calendar_shares AS cs ON cs.calendar_id = calendar.id").
		Where("cs.user_id = ?", userID).
		OrderExpr("calendar.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CalendarRepo) OwnedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.NewSelect().
		Model((*domain.Calendar)(nil)).
		Column("id").
		Where("owner_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *CalendarRepo) SharedCalendarIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.NewSelect().
		Model((*domain.CalendarShare)(nil)).
		Column("calendar_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *CalendarRepo) SetSharedUsers(ctx context.Context, calendarID uuid.UUID, userIDs []uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*domain.CalendarShare)(nil)).
			Where("calendar_id = ?", calendarID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}

		shares := make([]domain.CalendarShare, 0, len(userIDs))
		for _, id := range userIDs {
			shares = append(shares, domain.CalendarShare{CalendarID: calendarID, UserID: id})
		}
		_, err = tx.NewInsert().Model(&shares).Exec(ctx)
		return mapPgError(err)
	})
}

func (r *CalendarRepo) AddShare(ctx context.Context, calendarID, userID uuid.UUID) error {
	share := domain.CalendarShare{CalendarID: calendarID, UserID: userID}
	_, err := r.db.NewInsert().
		Model(&share).
		On("CONFLICT (calendar_id, user_id) DO NOTHING").
		Exec(ctx)
	return mapPgError(err)
}
