package notes

import (
	"context"

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

func (r *RepoPG) Create(ctx context.Context, n *Note) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO doctor_notes (provider_id, patient_id, note, appointment_date, send_reminder)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		n.ProviderID, n.PatientID, n.Note, n.AppointmentDate, n.SendReminder,
	).Scan(&n.ID, &n.CreatedAt)
	return db.Translate(err)
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Note, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT n.id, n.provider_id, n.patient_id, n.note, n.appointment_date, n.send_reminder, n.created_at,
		        u.username, u.email
		 FROM doctor_notes n
		 JOIN users u ON u.id = n.provider_id
		 WHERE n.patient_id = $1
		 ORDER BY n.appointment_date DESC, n.id DESC`, patientID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		var n Note
		err := rows.Scan(&n.ID, &n.ProviderID, &n.PatientID, &n.Note, &n.AppointmentDate,
			&n.SendReminder, &n.CreatedAt, &n.ProviderName, &n.ProviderEmail)
		if err != nil {
			return nil, db.Translate(err)
		}
		out = append(out, &n)
	}
	return out, db.Translate(rows.Err())
}
