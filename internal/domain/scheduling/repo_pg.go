package scheduling

import (
	"context"
	"time"

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

func (r *RepoPG) Create(ctx context.Context, rem *Reminder) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO reminders (clinician_id, patient_id, appointment_date, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		rem.ClinicianID, rem.PatientID, rem.AppointmentDate, rem.Description,
	).Scan(&rem.ID, &rem.CreatedAt)
	return db.Translate(err)
}

func (r *RepoPG) GetByID(ctx context.Context, id int64) (*Reminder, error) {
	var rem Reminder
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, clinician_id, patient_id, appointment_date, description, reminder_sent, sent_at, created_at
		 FROM reminders WHERE id = $1`, id,
	).Scan(&rem.ID, &rem.ClinicianID, &rem.PatientID, &rem.AppointmentDate,
		&rem.Description, &rem.Sent, &rem.SentAt, &rem.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &rem, nil
}

func (r *RepoPG) ListPending(ctx context.Context, from, until time.Time) ([]*Reminder, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT rm.id, rm.clinician_id, rm.patient_id, rm.appointment_date, rm.description,
		        rm.reminder_sent, rm.sent_at, rm.created_at, u.username, u.phone_number
		 FROM reminders rm
		 JOIN users u ON u.id = rm.patient_id
		 WHERE rm.reminder_sent = FALSE AND rm.appointment_date >= $1 AND rm.appointment_date < $2
		 ORDER BY rm.appointment_date`, from, until)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var out []*Reminder
	for rows.Next() {
		var rem Reminder
		err := rows.Scan(&rem.ID, &rem.ClinicianID, &rem.PatientID, &rem.AppointmentDate,
			&rem.Description, &rem.Sent, &rem.SentAt, &rem.CreatedAt, &rem.PatientName, &rem.PatientPhone)
		if err != nil {
			return nil, db.Translate(err)
		}
		out = append(out, &rem)
	}
	return out, db.Translate(rows.Err())
}

func (r *RepoPG) MarkSent(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reminders SET reminder_sent = TRUE, sent_at = $2
		 WHERE id = $1 AND reminder_sent = FALSE`, id, at)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
