package scheduling

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, rem *Reminder) error
	GetByID(ctx context.Context, id int64) (*Reminder, error)
	// ListPending returns unsent reminders with an appointment inside
	// [from, until), oldest appointment first, patient details joined.
	ListPending(ctx context.Context, from, until time.Time) ([]*Reminder, error)
	// MarkSent flips an unsent reminder to sent. Returns db.ErrNotFound
	// when no unsent row matched.
	MarkSent(ctx context.Context, id int64, at time.Time) error
}
