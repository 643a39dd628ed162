package auditlog

import "context"

// Repository persists audit entries. Implementations must only ever insert.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]*Entry, int, error)
}
