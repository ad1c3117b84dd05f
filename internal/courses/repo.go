package courses

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/store"
)

// Repository persists courses and their members.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const courseColumns = `id, code, name, department_id, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.DepartmentID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts c. A duplicate code is a Conflict.
func (r *Repository) Create(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (id, code, name, department_id) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, c.ID, c.Code, c.Name, c.DepartmentID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Course{}, apperr.Conflict("course code already exists")
		}
		return Course{}, store.Classify(err)
	}
	return c, nil
}

// Get returns a course by id.
func (r *Repository) Get(ctx context.Context, id string) (Course, error) {
	c, err := scanCourse(r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		return Course{}, store.NotFoundAs(err, "course not found")
	}
	return c, nil
}

// List returns courses ordered by code.
func (r *Repository) List(ctx context.Context, f Filter) ([]Course, error) {
	var (
		clauses []string
		args    []any
	)
	if f.DepartmentID != "" {
		args = append(args, f.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		clauses = append(clauses, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + courseColumns + ` FROM courses`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return r.queryCourses(ctx, query+" ORDER BY code", args...)
}

// ForUser returns the courses userID is a member of.
func (r *Repository) ForUser(ctx context.Context, userID string) ([]Course, error) {
	return r.queryCourses(ctx, `
		SELECT c.id, c.code, c.name, c.department_id, c.created_at, c.updated_at
		FROM courses c JOIN course_members m ON m.course_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.code
	`, userID)
}

func (r *Repository) queryCourses(ctx context.Context, query string, args ...any) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, c)
	}
	return res, store.Classify(rows.Err())
}

// Update writes code, name and department of c.
func (r *Repository) Update(ctx context.Context, c Course) (Course, error) {
	err := r.db.QueryRowContext(ctx, `
		UPDATE courses SET code = $2, name = $3, department_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, c.ID, c.Code, c.Name, c.DepartmentID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Course{}, apperr.Conflict("course code already exists")
		}
		return Course{}, store.NotFoundAs(err, "course not found")
	}
	return c, nil
}

// Delete removes a course. Courses with class slots cannot be removed.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if err = store.Classify(err); apperr.Is(err, apperr.KindConflict) {
			return apperr.Conflict("course still has class slots")
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return apperr.NotFound("course not found")
	}
	return nil
}

// AddMember links userID to courseID with role. Duplicate membership is a Conflict.
func (r *Repository) AddMember(ctx context.Context, courseID, userID string, role auth.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO course_members (course_id, user_id, role) VALUES ($1, $2, $3)
	`, courseID, userID, string(role))
	if store.IsUniqueViolation(err) {
		return apperr.Conflict("user is already a member of this course")
	}
	return store.Classify(err)
}

// Members lists the members of courseID, optionally limited to one role.
func (r *Repository) Members(ctx context.Context, courseID string, role auth.Role) ([]Member, error) {
	query := `
		SELECT m.course_id, m.user_id, m.role, u.email, u.first_name, u.last_name, m.created_at
		FROM course_members m JOIN users u ON u.id = m.user_id
		WHERE m.course_id = $1`
	args := []any{courseID}
	if role != "" {
		query += ` AND m.role = $2`
		args = append(args, string(role))
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY u.last_name, u.first_name`, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.CourseID, &m.UserID, &m.Role, &m.Email, &m.FirstName, &m.LastName, &m.JoinedAt); err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, m)
	}
	return res, store.Classify(rows.Err())
}

// RemoveMember unlinks userID from courseID.
func (r *Repository) RemoveMember(ctx context.Context, courseID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_members WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return store.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return apperr.NotFound("membership not found")
	}
	return nil
}
