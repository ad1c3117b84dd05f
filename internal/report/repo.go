package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"attendtrack/internal/store"
)

// Filter selects the attendance records to aggregate. From and To are inclusive.
type Filter struct {
	StudentIDs   []string
	SlotIDs      []string
	Course       string
	DepartmentID string
	From         *time.Time
	To           *time.Time
}

// Repository runs the GROUP BY queries behind reports.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordsJoin = `
	FROM attendance_records a
	JOIN class_slots s ON s.id = a.slot_id
	JOIN courses c ON c.id = s.course_id
	JOIN users u ON u.id = a.student_id`

func where(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if len(f.StudentIDs) > 0 {
		add("a.student_id = ANY($%d)", f.StudentIDs)
	}
	if len(f.SlotIDs) > 0 {
		add("a.slot_id = ANY($%d)", f.SlotIDs)
	}
	if c := strings.TrimSpace(f.Course); c != "" {
		add("c.name ILIKE $%d", "%"+c+"%")
	}
	if f.DepartmentID != "" {
		add("u.department_id = $%d", f.DepartmentID)
	}
	if f.From != nil {
		add("a.recorded_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("a.recorded_at <= $%d", *f.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CountByStatus counts matching records per status.
func (r *Repository) CountByStatus(ctx context.Context, f Filter) ([]StatusCount, error) {
	cond, args := where(f)
	rows, err := r.db.QueryContext(ctx, `SELECT a.status, COUNT(*)`+recordsJoin+cond+` GROUP BY a.status`, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, c)
	}
	return res, store.Classify(rows.Err())
}

// CountByCourse counts matching records per course name and status.
func (r *Repository) CountByCourse(ctx context.Context, f Filter) ([]CourseCount, error) {
	cond, args := where(f)
	rows, err := r.db.QueryContext(ctx, `SELECT c.name, a.status, COUNT(*)`+recordsJoin+cond+` GROUP BY c.name, a.status`, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []CourseCount
	for rows.Next() {
		var c CourseCount
		if err := rows.Scan(&c.Course, &c.Status, &c.Count); err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, c)
	}
	return res, store.Classify(rows.Err())
}

// CountStudents returns the number of students in a department.
func (r *Repository) CountStudents(ctx context.Context, departmentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'student' AND department_id = $1`, departmentID).Scan(&n)
	return n, store.Classify(err)
}
