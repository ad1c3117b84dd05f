// Package faq manages frequently asked questions curated by tutors and admins.
package faq

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/store"
	"attendtrack/internal/validation"
)

// FAQ is a question with its answer.
type FAQ struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedBy *string   `json:"created_by,omitempty"`
	UpdatedBy *string   `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input creates or replaces an FAQ.
type Input struct {
	Question string `json:"question" binding:"required,max=500"`
	Answer   string `json:"answer" binding:"required"`
}

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, f FAQ) (FAQ, error)
	Get(ctx context.Context, id string) (FAQ, error)
	List(ctx context.Context, search string) ([]FAQ, error)
	Update(ctx context.Context, f FAQ) (FAQ, error)
	Delete(ctx context.Context, id string) error
}

// Service manages FAQs. Tutors and admins write; everyone reads.
type Service struct {
	store Store
}

// NewService creates a service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create adds an FAQ.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (FAQ, error) {
	if err := s.canWrite(actor, in); err != nil {
		return FAQ{}, err
	}
	author := actor.UserID
	return s.store.Insert(ctx, FAQ{
		Question:  strings.TrimSpace(in.Question),
		Answer:    strings.TrimSpace(in.Answer),
		CreatedBy: &author,
		UpdatedBy: &author,
	})
}

// Update replaces question and answer of an FAQ.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (FAQ, error) {
	if err := s.canWrite(actor, in); err != nil {
		return FAQ{}, err
	}
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return FAQ{}, err
	}
	editor := actor.UserID
	f.Question = strings.TrimSpace(in.Question)
	f.Answer = strings.TrimSpace(in.Answer)
	f.UpdatedBy = &editor
	return s.store.Update(ctx, f)
}

// Delete removes an FAQ.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireRole(actor, auth.RoleTutor, auth.RoleAdmin); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Get returns one FAQ.
func (s *Service) Get(ctx context.Context, id string) (FAQ, error) {
	return s.store.Get(ctx, id)
}

// List returns FAQs whose question or answer contains search.
func (s *Service) List(ctx context.Context, search string) ([]FAQ, error) {
	return s.store.List(ctx, strings.TrimSpace(search))
}

func (s *Service) canWrite(actor auth.Actor, in Input) error {
	if err := auth.RequireRole(actor, auth.RoleTutor, auth.RoleAdmin); err != nil {
		return err
	}
	return validation.Struct(in)
}

// Repository persists FAQs.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const faqColumns = `id, question, answer, created_by, updated_by, created_at, updated_at`

func scanFAQ(row interface{ Scan(...any) error }) (FAQ, error) {
	var f FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.CreatedBy, &f.UpdatedBy, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// Insert stores f.
func (r *Repository) Insert(ctx context.Context, f FAQ) (FAQ, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO faqs (id, question, answer, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, f.ID, f.Question, f.Answer, f.CreatedBy, f.UpdatedBy).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return FAQ{}, store.Classify(err)
	}
	return f, nil
}

// Get returns an FAQ by id.
func (r *Repository) Get(ctx context.Context, id string) (FAQ, error) {
	f, err := scanFAQ(r.db.QueryRowContext(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id = $1`, id))
	if err != nil {
		return FAQ{}, store.NotFoundAs(err, "faq not found")
	}
	return f, nil
}

// List returns FAQs, newest first, optionally filtered by a case-insensitive substring.
func (r *Repository) List(ctx context.Context, search string) ([]FAQ, error) {
	query := `SELECT ` + faqColumns + ` FROM faqs`
	var args []any
	if search != "" {
		query += ` WHERE question ILIKE $1 OR answer ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY updated_at DESC`, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, f)
	}
	return res, store.Classify(rows.Err())
}

// Update writes question, answer and editor of f.
func (r *Repository) Update(ctx context.Context, f FAQ) (FAQ, error) {
	err := r.db.QueryRowContext(ctx, `
		UPDATE faqs SET question = $2, answer = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, f.ID, f.Question, f.Answer, f.UpdatedBy).Scan(&f.UpdatedAt)
	if err != nil {
		return FAQ{}, store.NotFoundAs(err, "faq not found")
	}
	return f, nil
}

// Delete removes an FAQ.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return store.Classify(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return store.Classify(err)
	} else if n == 0 {
		return apperr.NotFound("faq not found")
	}
	return nil
}
