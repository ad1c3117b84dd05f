package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/store"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, slot_id, student_id, status, method, recorded_at, marked_by, verified_at, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.SlotID, &rec.StudentID, &rec.Status, &rec.Method, &rec.RecordedAt,
		&rec.MarkedBy, &rec.VerifiedAt, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// Insert writes a new record. A second record for the same slot and student is a Conflict.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, slot_id, student_id, status, method, recorded_at, marked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, rec.ID, rec.SlotID, rec.StudentID, string(rec.Status), rec.Method, rec.RecordedAt, rec.MarkedBy).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Record{}, apperr.Conflict("attendance already recorded for this class")
		}
		return Record{}, store.Classify(err)
	}
	return rec, nil
}

// Get returns a record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id))
	if err != nil {
		return Record{}, store.NotFoundAs(err, "attendance record not found")
	}
	return rec, nil
}

// Find returns the record for a slot and student, if any.
func (r *Repository) Find(ctx context.Context, slotID, studentID string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE slot_id = $1 AND student_id = $2
	`, slotID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return &rec, nil
}

// Update writes status, method, marked_by and verified_at of rec.
func (r *Repository) Update(ctx context.Context, rec Record) (Record, error) {
	err := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET status = $2, method = $3, marked_by = $4, verified_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, rec.ID, string(rec.Status), rec.Method, rec.MarkedBy, rec.VerifiedAt).Scan(&rec.UpdatedAt)
	if err != nil {
		return Record{}, store.NotFoundAs(err, "attendance record not found")
	}
	return rec, nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return store.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return apperr.NotFound("attendance record not found")
	}
	return nil
}

// List returns records matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.StudentID != "" {
		add("student_id = $%d", f.StudentID)
	}
	if f.SlotID != "" {
		add("slot_id = $%d", f.SlotID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.From != nil {
		add("recorded_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("recorded_at <= $%d", *f.To)
	}
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, rec)
	}
	return res, store.Classify(rows.Err())
}
