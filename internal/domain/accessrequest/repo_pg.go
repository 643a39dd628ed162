package accessrequest

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

const reqCols = `ar.id, ar.clinician_id, ar.patient_id, ar.reason, ar.status, ar.created_at, ar.updated_at`

func scanRequest(row pgx.Row) (*AccessRequest, error) {
	var ar AccessRequest
	err := row.Scan(&ar.ID, &ar.ClinicianID, &ar.PatientID, &ar.Reason, &ar.Status, &ar.CreatedAt, &ar.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &ar, nil
}

func (r *RepoPG) Create(ctx context.Context, ar *AccessRequest) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO access_requests (clinician_id, patient_id, reason, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		ar.ClinicianID, ar.PatientID, ar.Reason, ar.Status,
	).Scan(&ar.ID, &ar.CreatedAt, &ar.UpdatedAt)
	return db.Translate(err)
}

func (r *RepoPG) GetByID(ctx context.Context, id int64) (*AccessRequest, error) {
	q := fmt.Sprintf(`SELECT %s FROM access_requests ar WHERE ar.id = $1`, reqCols)
	return scanRequest(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByPair(ctx context.Context, clinicianID, patientID int64) (*AccessRequest, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM access_requests ar WHERE ar.clinician_id = $1 AND ar.patient_id = $2`,
		reqCols)
	return scanRequest(r.conn(ctx).QueryRow(ctx, q, clinicianID, patientID))
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*AccessRequest, error) {
	q := fmt.Sprintf(
		`SELECT %s, u.username
		 FROM access_requests ar
		 JOIN users u ON u.id = ar.clinician_id
		 WHERE ar.patient_id = $1
		 ORDER BY ar.created_at DESC`, reqCols)
	return r.list(ctx, q, patientID, func(ar *AccessRequest, name string) { ar.ClinicianName = name })
}

func (r *RepoPG) ListByClinician(ctx context.Context, clinicianID int64) ([]*AccessRequest, error) {
	q := fmt.Sprintf(
		`SELECT %s, u.username
		 FROM access_requests ar
		 JOIN users u ON u.id = ar.patient_id
		 WHERE ar.clinician_id = $1
		 ORDER BY ar.created_at DESC`, reqCols)
	return r.list(ctx, q, clinicianID, func(ar *AccessRequest, name string) { ar.PatientName = name })
}

func (r *RepoPG) list(ctx context.Context, q string, arg int64, assign func(*AccessRequest, string)) ([]*AccessRequest, error) {
	rows, err := r.conn(ctx).Query(ctx, q, arg)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var out []*AccessRequest
	for rows.Next() {
		var ar AccessRequest
		var name string
		err := rows.Scan(&ar.ID, &ar.ClinicianID, &ar.PatientID, &ar.Reason, &ar.Status, &ar.CreatedAt, &ar.UpdatedAt, &name)
		if err != nil {
			return nil, db.Translate(err)
		}
		assign(&ar, name)
		out = append(out, &ar)
	}
	return out, db.Translate(rows.Err())
}

func (r *RepoPG) Resolve(ctx context.Context, id, patientID int64, status string) (*AccessRequest, error) {
	q := `UPDATE access_requests
	      SET status = $3, updated_at = NOW()
	      WHERE id = $1 AND patient_id = $2 AND status = 'pending'
	      RETURNING id, clinician_id, patient_id, reason, status, created_at, updated_at`
	var ar AccessRequest
	err := r.conn(ctx).QueryRow(ctx, q, id, patientID, status).
		Scan(&ar.ID, &ar.ClinicianID, &ar.PatientID, &ar.Reason, &ar.Status, &ar.CreatedAt, &ar.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &ar, nil
}
