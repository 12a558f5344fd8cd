package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Calendar struct {
	bun.BaseModel `bun:"table:calendars"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	OwnerID     uuid.UUID `bun:"owner_id,notnull,type:uuid"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (c *Calendar) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			c.ID = id
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

// CalendarShare grants a non-owner read access to a calendar. A
// (calendar_id, user_id) pair is unique.
type CalendarShare struct {
	bun.BaseModel `bun:"table:calendar_shares"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	CalendarID uuid.UUID `bun:"calendar_id,notnull,type:uuid"`
	UserID     uuid.UUID `bun:"user_id,notnull,type:uuid"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (s *CalendarShare) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

type CalendarInvite struct {
	bun.BaseModel `bun:"table:calendar_invites"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	CalendarID uuid.UUID `bun:"calendar_id,notnull,type:uuid"`
	Email      string    `bun:"email,notnull"`
	InvitedBy  uuid.UUID `bun:"invited_by,notnull,type:uuid"`
	Token      string    `bun:"token,notnull,unique"`
	Accepted   bool      `bun:"accepted,notnull,default:false"`
	Declined   bool      `bun:"declined,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (i *CalendarInvite) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if i.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			i.ID = id
		}
		if i.CreatedAt.IsZero() {
			i.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}
