package notify

import (
	"context"
	"time"
)

// Notification is a stored in-app message for one user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notice is a request to notify a user.
type Notice struct {
	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Sink accepts notices without reporting delivery failures to the caller.
type Sink interface {
	Notify(ctx context.Context, n Notice)
}

// AbsenceReport describes the outcome of an absence pattern check.
type AbsenceReport struct {
	StudentID   string `json:"student_id"`
	Absences    int    `json:"absences"`
	Warned      bool   `json:"warned"`
	Escalations int    `json:"escalations"`
}
