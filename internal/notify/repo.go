package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/store"
)

// Repository persists notifications and reads absence counts.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const notificationColumns = `id, user_id, title, message, metadata, is_read, read_at, created_at`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var (
		n    Notification
		meta []byte
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &meta, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
		return Notification{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return Notification{}, err
		}
	}
	return n, nil
}

// Insert stores n.
func (r *Repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	meta := []byte("{}")
	if len(n.Metadata) > 0 {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return Notification{}, apperr.Validation("metadata is not serialisable", nil)
		}
		meta = b
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, n.ID, n.UserID, n.Title, n.Message, string(meta)).Scan(&n.CreatedAt)
	if err != nil {
		return Notification{}, store.Classify(err)
	}
	return n, nil
}

// Get returns one notification.
func (r *Repository) Get(ctx context.Context, id string) (Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		return Notification{}, store.NotFoundAs(err, "notification not found")
	}
	return n, nil
}

// List returns the newest notifications of userID.
func (r *Repository) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, n)
	}
	return res, store.Classify(rows.Err())
}

// MarkRead flags a notification as read at the given time. Already-read rows keep their first read_at.
func (r *Repository) MarkRead(ctx context.Context, id string, at time.Time) (Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING `+notificationColumns, id, at))
	if err != nil {
		return Notification{}, store.NotFoundAs(err, "notification not found")
	}
	return n, nil
}

// CountAbsences counts absent records of studentID recorded at or after since.
func (r *Repository) CountAbsences(ctx context.Context, studentID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records
		WHERE student_id = $1 AND status = 'absent' AND recorded_at >= $2
	`, studentID, since).Scan(&n)
	return n, store.Classify(err)
}

// HasNotice reports whether recipientID got a notice of kind about studentID at or after since.
func (r *Repository) HasNotice(ctx context.Context, recipientID, kind, studentID string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND metadata->>'type' = $2 AND metadata->>'student_id' = $3 AND created_at >= $4
		)
	`, recipientID, kind, studentID, since).Scan(&exists)
	return exists, store.Classify(err)
}
