// Package support handles help desk tickets raised by users and answered by admins.
package support

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/store"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// ParseStatus normalises s into a known status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range statuses {
		if st == known {
			return st, nil
		}
	}
	return "", apperr.Validation("invalid ticket status", map[string]string{
		"status": "must be one of open, in_progress, resolved, closed",
	})
}

// Ticket is a support request.
type Ticket struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Subject    string     `json:"subject"`
	Query      string     `json:"query"`
	Response   string     `json:"response,omitempty"`
	Status     Status     `json:"status"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Status Status
	UserID string
	Search string
}

// Repository persists tickets.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const ticketColumns = `id, user_id, subject, query, response, status, resolved_by, resolved_at, created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (Ticket, error) {
	var t Ticket
	var status string
	err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Query, &t.Response, &status,
		&t.ResolvedBy, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt)
	t.Status = Status(status)
	return t, err
}

// Insert stores a new ticket.
func (r *Repository) Insert(ctx context.Context, t Ticket) (Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO support_tickets (id, user_id, subject, query, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, t.ID, t.UserID, t.Subject, t.Query, string(t.Status)).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Ticket{}, store.Classify(err)
	}
	return t, nil
}

// Get returns a ticket by id.
func (r *Repository) Get(ctx context.Context, id string) (Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id))
	if err != nil {
		return Ticket{}, store.NotFoundAs(err, "support ticket not found")
	}
	return t, nil
}

// List returns tickets matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Ticket, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(subject ILIKE $%d OR query ILIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + ticketColumns + ` FROM support_tickets`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, t)
	}
	return res, store.Classify(rows.Err())
}

// Update writes the mutable fields of t.
func (r *Repository) Update(ctx context.Context, t Ticket) (Ticket, error) {
	err := r.db.QueryRowContext(ctx, `
		UPDATE support_tickets
		SET response = $2, status = $3, resolved_by = $4, resolved_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, t.ID, t.Response, string(t.Status), t.ResolvedBy, t.ResolvedAt).Scan(&t.UpdatedAt)
	if err != nil {
		return Ticket{}, store.NotFoundAs(err, "support ticket not found")
	}
	return t, nil
}

// Delete removes a ticket.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM support_tickets WHERE id = $1`, id)
	if err != nil {
		return store.Classify(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return store.Classify(err)
	} else if n == 0 {
		return apperr.NotFound("support ticket not found")
	}
	return nil
}
