package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	Email          string    `bun:"email,notnull,unique"`
	Username       string    `bun:"username,notnull"`
	ProfilePicture string    `bun:"profile_picture"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			u.ID = id
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}

// Friendship is unidirectional: the owner added the friend, not the
// other way around.
type Friendship struct {
	bun.BaseModel `bun:"table:friendships"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	FriendID  uuid.UUID `bun:"friend_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (f *Friendship) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if f.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			f.ID = id
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}
