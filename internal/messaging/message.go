package messaging

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/store"
)

// Message is a direct message between two users.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Subject    string    `json:"subject"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists messages.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const messageColumns = `id, sender_id, receiver_id, subject, content, created_at`

// Insert stores m.
func (r *Repository) Insert(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, subject, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.SenderID, m.ReceiverID, m.Subject, m.Content).Scan(&m.CreatedAt)
	if err != nil {
		return Message{}, store.Classify(err)
	}
	return m, nil
}

// Get returns a message by id.
func (r *Repository) Get(ctx context.Context, id string) (Message, error) {
	var m Message
	err := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Subject, &m.Content, &m.CreatedAt)
	if err != nil {
		return Message{}, store.NotFoundAs(err, "message not found")
	}
	return m, nil
}

// Received lists messages sent to userID, newest first.
func (r *Repository) Received(ctx context.Context, userID string) ([]Message, error) {
	return r.query(ctx, `SELECT `+messageColumns+` FROM messages WHERE receiver_id = $1 ORDER BY created_at DESC`, userID)
}

// SentBy lists messages sent by userID, newest first.
func (r *Repository) SentBy(ctx context.Context, userID string) ([]Message, error) {
	return r.query(ctx, `SELECT `+messageColumns+` FROM messages WHERE sender_id = $1 ORDER BY created_at DESC`, userID)
}

// Between lists the conversation of two users, oldest first.
func (r *Repository) Between(ctx context.Context, a, b string) ([]Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC
	`, a, b)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Subject, &m.Content, &m.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, m)
	}
	return res, store.Classify(rows.Err())
}
