package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"attendtrack/internal/store"
)

// Repository persists entries in activity_logs.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, admin_id, action, description, target_id, created_at`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var (
		e      Entry
		action string
	)
	err := row.Scan(&e.ID, &e.AdminID, &action, &e.Description, &e.TargetID, &e.CreatedAt)
	e.Action = Action(action)
	return e, err
}

// Insert stores e.
func (r *Repository) Insert(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO activity_logs (id, admin_id, action, description, target_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.AdminID, string(e.Action), e.Description, e.TargetID).Scan(&e.CreatedAt)
	if err != nil {
		return Entry{}, store.Classify(err)
	}
	return e, nil
}

// Get returns an entry by id.
func (r *Repository) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM activity_logs WHERE id = $1`, id))
	if err != nil {
		return Entry{}, store.NotFoundAs(err, "activity entry not found")
	}
	return e, nil
}

// List returns entries matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	if f.AdminID != "" {
		args = append(args, f.AdminID)
		conds = append(conds, fmt.Sprintf("admin_id = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, string(f.Action))
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	query := `SELECT ` + entryColumns + ` FROM activity_logs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, e)
	}
	return res, store.Classify(rows.Err())
}
