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

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m := user
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.User{}, mapPgError(err)
	}
	return m, nil
}

func (r *UserRepo) Get(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var m domain.User
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return m, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var m domain.User
	err := r.db.NewSelect().
		Model(&m).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return m, nil
}

type FriendRepo struct {
	db *bun.DB
}

func NewFriendRepo(db *bun.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

func (r *FriendRepo) Add(ctx context.Context, userID, friendID uuid.UUID) error {
	f := domain.Friendship{UserID: userID, FriendID: friendID}
	_, err := r.db.NewInsert().Model(&f).Exec(ctx)
	return mapPgError(err)
}

func (r *FriendRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	var rows []domain.User
	err := r.db.NewSelect().
		Model(&rows).
		Join("JOIN friendships AS f ON f.friend_id = \"user\".id").
		Where("f.user_id = ?", userID).
		OrderExpr("\"user\".username ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *FriendRepo) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Friendship)(nil)).
		Where("user_id = ?", userID).
		Where("friend_id = ?", friendID).
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

type InviteRepo struct {
	db *bun.DB
}

func NewInviteRepo(db *bun.DB) *InviteRepo {
	return &InviteRepo{db: db}
}

func (r *InviteRepo) Create(ctx context.Context, invite domain.CalendarInvite) (domain.CalendarInvite, error) {
	m := invite
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.CalendarInvite{}, mapPgError(err)
	}
	return m, nil
}

func (r *InviteRepo) GetByToken(ctx context.Context, token string) (domain.CalendarInvite, error) {
	var m domain.CalendarInvite
	err := r.db.NewSelect().
		Model(&m).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CalendarInvite{}, store.ErrNotFound
		}
		return domain.CalendarInvite{}, err
	}
	return m, nil
}

func (r *InviteRepo) ListByEmail(ctx context.Context, email string) ([]domain.CalendarInvite, error) {
	var rows []domain.CalendarInvite
	err := r.db.NewSelect().
		Model(&rows).
		Where("email = ?", email).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *InviteRepo) Accept(ctx context.Context, token string, email string, userID uuid.UUID) (domain.CalendarInvite, error) {
	var out domain.CalendarInvite
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInviteToken(ctx, tx, token); err != nil {
			return err
		}

		invite, err := findInviteForResponse(ctx, tx, token, email)
		if err != nil {
			return err
		}

		invite.Accepted = true
		if _, err := tx.NewUpdate().
			Model(&invite).
			Column("accepted").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		share := domain.CalendarShare{CalendarID: invite.CalendarID, UserID: userID}
		if _, err := tx.NewInsert().
			Model(&share).
			On("CONFLICT (calendar_id, user_id) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}

		out = invite
		return nil
	})
	if err != nil {
		return domain.CalendarInvite{}, err
	}
	return out, nil
}

func (r *InviteRepo) Decline(ctx context.Context, token string, email string) (domain.CalendarInvite, error) {
	var out domain.CalendarInvite
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInviteToken(ctx, tx, token); err != nil {
			return err
		}

		invite, err := findInviteForResponse(ctx, tx, token, email)
		if err != nil {
			return err
		}

		invite.Declined = true
		if _, err := tx.NewUpdate().
			Model(&invite).
			Column("declined").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		out = invite
		return nil
	})
	if err != nil {
		return domain.CalendarInvite{}, err
	}
	return out, nil
}

// The advisory lock serializes concurrent responses to one invite so an
// accept/decline race cannot record both.
func lockInviteToken(ctx context.Context, tx bun.Tx, token string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", token).Exec(ctx)
	return err
}

func findInviteForResponse(ctx context.Context, tx bun.Tx, token, email string) (domain.CalendarInvite, error) {
	var invite domain.CalendarInvite
	err := tx.NewSelect().
		Model(&invite).
		Where("token = ?", token).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CalendarInvite{}, store.ErrNotFound
		}
		return domain.CalendarInvite{}, err
	}
	if invite.Accepted || invite.Declined {
		return domain.CalendarInvite{}, store.ErrConflict
	}
	return invite, nil
}
