package records

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

const recordCols = `r.id, r.patient_id, r.clinician_id, r.title, r.description, r.file_name, r.file_type, r.file_size, r.created_at, r.updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.ClinicianID, &rec.Title, &rec.Description,
		&rec.FileName, &rec.FileType, &rec.FileSize, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &rec, nil
}

func (r *RepoPG) Create(ctx context.Context, rec *Record) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO records (patient_id, clinician_id, title, description, file_name, file_type, file_size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		rec.PatientID, rec.ClinicianID, rec.Title, rec.Description, rec.FileName, rec.FileType, rec.FileSize,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	return db.Translate(err)
}

func (r *RepoPG) GetByID(ctx context.Context, id int64) (*Record, error) {
	q := fmt.Sprintf(`SELECT %s FROM records r WHERE r.id = $1`, recordCols)
	return scanRecord(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Record, error) {
	q := fmt.Sprintf(
		`SELECT %s, u.username
		 FROM records r
		 JOIN users u ON u.id = r.clinician_id
		 WHERE r.patient_id = $1
		 ORDER BY r.created_at DESC`, recordCols)
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.ID, &rec.PatientID, &rec.ClinicianID, &rec.Title, &rec.Description,
			&rec.FileName, &rec.FileType, &rec.FileSize, &rec.CreatedAt, &rec.UpdatedAt, &rec.ClinicianName)
		if err != nil {
			return nil, db.Translate(err)
		}
		out = append(out, &rec)
	}
	return out, db.Translate(rows.Err())
}

func (r *RepoPG) Update(ctx context.Context, id, clinicianID int64, title, description string) (*Record, error) {
	q := `UPDATE records
	      SET title = $3, description = $4, updated_at = NOW()
	      WHERE id = $1 AND clinician_id = $2
	      RETURNING id, patient_id, clinician_id, title, description, file_name, file_type, file_size, created_at, updated_at`
	return scanRecord(r.conn(ctx).QueryRow(ctx, q, id, clinicianID, title, description))
}

func (r *RepoPG) Delete(ctx context.Context, id, clinicianID int64) (*Record, error) {
	q := `DELETE FROM records
	      WHERE id = $1 AND clinician_id = $2
	      RETURNING id, patient_id, clinician_id, title, description, file_name, file_type, file_size, created_at, updated_at`
	return scanRecord(r.conn(ctx).QueryRow(ctx, q, id, clinicianID))
}
