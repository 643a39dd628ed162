package auditlog

import (
	"context"
	"encoding/json"
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

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const auditCols = `id, actor_id, actor_role, action, record_id, patient_id, changes, ip_address, user_agent, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var changes []byte
	err := row.Scan(
		&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.RecordID, &e.PatientID,
		&changes, &e.IP, &e.UserAgent, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return nil, fmt.Errorf("decode changes: %w", err)
		}
	}
	return &e, nil
}

func (r *RepoPG) Append(ctx context.Context, e *Entry) error {
	var changes []byte
	if e.Changes != nil {
		var err error
		changes, err = json.Marshal(e.Changes)
		if err != nil {
			return fmt.Errorf("encode changes: %w", err)
		}
	}

	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO audit_logs (actor_id, actor_role, action, record_id, patient_id, changes, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		e.ActorID, e.ActorRole, e.Action, e.RecordID, e.PatientID, changes, e.IP, e.UserAgent,
	).Scan(&e.ID, &e.CreatedAt)
	return db.Translate(err)
}

func (r *RepoPG) ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE actor_id = $1`, actorID,
	).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	q := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE actor_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, auditCols)
	rows, err := r.conn(ctx).Query(ctx, q, actorID, limit, offset)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, db.Translate(err)
		}
		items = append(items, e)
	}
	return items, total, db.Translate(rows.Err())
}
