package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	CalendarID  uuid.UUID  `bun:"calendar_id,notnull,type:uuid"`
	UserID      uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description"`
	StartTime   time.Time  `bun:"start_time,notnull"`
	EndTime     time.Time  `bun:"end_time,notnull"`
	BgColor     string     `bun:"bg_color,notnull"`
	RepeatType  RepeatType `bun:"repeat_type,notnull"`
	RepeatDays  []string   `bun:"repeat_days,array"`
	RepeatUntil *time.Time `bun:"repeat_until"`

	// CachedOccurrences is a disposable denormalized copy of the
	// generator's output. It is regenerated whenever a rule-affecting
	// field changes and must never be treated as a source of truth.
	CachedOccurrences []time.Time `bun:"cached_occurrences,array"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (e *Event) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.BgColor == "" {
			e.BgColor = DefaultEventColor
		}
		if e.RepeatType == "" {
			e.RepeatType = RepeatNone
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

const DefaultEventColor = "#FFFFFF"

func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

func (e *Event) Rule() RepeatRule {
	return RepeatRule{
		Type:  e.RepeatType,
		Days:  e.RepeatDays,
		Until: e.RepeatUntil,
	}
}
