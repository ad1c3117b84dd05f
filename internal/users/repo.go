package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/store"
)

// Repository persists users, departments and refresh tokens in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, password_hash, role, first_name, last_name, department_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.DepartmentID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts u. A duplicate email surfaces as a Conflict.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name, department_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName, u.DepartmentID)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, apperr.Conflict("email already in use")
		}
		return User{}, store.Classify(err)
	}
	return u, nil
}

// GetUser returns a single user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return User{}, store.NotFoundAs(err, "user not found")
	}
	return u, nil
}

// GetUserByEmail looks a user up by case-insensitive email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return User{}, store.NotFoundAs(err, "user not found")
	}
	return u, nil
}

// ListUsers returns users matching filter ordered by last name.
func (r *Repository) ListUsers(ctx context.Context, f ListFilter) ([]User, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Role != "" {
		args = append(args, string(f.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.DepartmentID != "" {
		args = append(args, f.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY last_name, first_name, email"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, u)
	}
	return res, store.Classify(rows.Err())
}

// Admins returns every admin account.
func (r *Repository) Admins(ctx context.Context) ([]User, error) {
	return r.ListUsers(ctx, ListFilter{Role: auth.RoleAdmin})
}

// UpdateProfile writes the mutable profile fields of u.
func (r *Repository) UpdateProfile(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, department_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.FirstName, u.LastName, u.DepartmentID)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		return User{}, store.NotFoundAs(err, "user not found")
	}
	return u, nil
}

// UpdatePassword replaces the stored hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return affectedOne(res, err, "user not found")
}

// DeleteUser removes a user.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affectedOne(res, err, "user not found")
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, userID, token, expiresAt)
	return store.Classify(err)
}

// ConsumeRefreshToken revokes token and returns its owner when it was still usable.
func (r *Repository) ConsumeRefreshToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND revoked = FALSE AND expires_at > NOW()
		RETURNING user_id
	`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.Unauthorized("refresh token expired or revoked")
	}
	return userID, store.Classify(err)
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return store.Classify(err)
}

// CreateDepartment inserts d.
func (r *Repository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO departments (id, name, faculty) VALUES ($1, $2, $3)
		RETURNING created_at
	`, d.ID, d.Name, d.Faculty).Scan(&d.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Department{}, apperr.Conflict("department already exists")
		}
		return Department{}, store.Classify(err)
	}
	return d, nil
}

// GetDepartment returns a department by id.
func (r *Repository) GetDepartment(ctx context.Context, id string) (Department, error) {
	var d Department
	err := r.db.QueryRowContext(ctx, `SELECT id, name, faculty, created_at FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Faculty, &d.CreatedAt)
	if err != nil {
		return Department{}, store.NotFoundAs(err, "department not found")
	}
	return d, nil
}

// ListDepartments returns departments, optionally restricted to one faculty.
func (r *Repository) ListDepartments(ctx context.Context, faculty string) ([]Department, error) {
	query := `SELECT id, name, faculty, created_at FROM departments`
	var args []any
	if faculty != "" {
		query += ` WHERE faculty = $1`
		args = append(args, faculty)
	}
	query += ` ORDER BY faculty, name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Faculty, &d.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, d)
	}
	return res, store.Classify(rows.Err())
}

// UpdateDepartment renames d or moves it to another faculty.
func (r *Repository) UpdateDepartment(ctx context.Context, d Department) (Department, error) {
	err := r.db.QueryRowContext(ctx, `
		UPDATE departments SET name = $2, faculty = $3 WHERE id = $1
		RETURNING created_at
	`, d.ID, d.Name, d.Faculty).Scan(&d.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Department{}, apperr.Conflict("department already exists")
		}
		return Department{}, store.NotFoundAs(err, "department not found")
	}
	return d, nil
}

// DeleteDepartment removes a department; members keep their accounts.
func (r *Repository) DeleteDepartment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	return affectedOne(res, err, "department not found")
}

func affectedOne(res sql.Result, err error, notFound string) error {
	if err != nil {
		return store.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return apperr.NotFound(notFound)
	}
	return nil
}
