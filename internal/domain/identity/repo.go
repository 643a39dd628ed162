package identity

import "context"

// UserRepository persists portal accounts. Create returns db.ErrConflict when
// the username or email is already taken.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SearchPatients(ctx context.Context, prefix string, limit int) ([]*User, error)
}
