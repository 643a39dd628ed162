package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type UserRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepoPG(pool *pgxpool.Pool) *UserRepoPG {
	return &UserRepoPG{pool: pool}
}

func (r *UserRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, username, email, phone_number, role, password_hash, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PhoneNumber, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &u, nil
}

func (r *UserRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO users (username, email, phone_number, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.Username, u.Email, u.PhoneNumber, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	return db.Translate(err)
}

func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userCols)
	return scanUser(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *UserRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userCols)
	return scanUser(r.conn(ctx).QueryRow(ctx, q, username))
}

func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userCols)
	return scanUser(r.conn(ctx).QueryRow(ctx, q, email))
}

func (r *UserRepoPG) SearchPatients(ctx context.Context, prefix string, limit int) ([]*User, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM users WHERE role = 'patient' AND username ILIKE $1 || '%%' ORDER BY username LIMIT $2`,
		userCols)
	rows, err := r.conn(ctx).Query(ctx, q, prefix, limit)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, db.Translate(rows.Err())
}
