// Package activity keeps an audit trail of administrative actions.
package activity

import (
	"context"
	"log"
	"time"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
)

// Action names a kind of admin action.
type Action string

const (
	ActionUserCreate       Action = "user.create"
	ActionUserDelete       Action = "user.delete"
	ActionTicketResolve    Action = "ticket.resolve"
	ActionTicketStatus     Action = "ticket.status"
	ActionSlotReassign     Action = "slot.reassign"
	ActionAttendanceDelete Action = "attendance.delete"
)

// Entry is one recorded action. AdminID is cleared when the admin account
// is removed.
type Entry struct {
	ID          string    `json:"id"`
	AdminID     *string   `json:"admin_id"`
	Action      Action    `json:"action"`
	Description string    `json:"description"`
	TargetID    string    `json:"target_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	AdminID string
	Action  Action
	From    *time.Time
	To      *time.Time
	Limit   int
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Recorder accepts entries from the services that perform admin actions.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Store is the persistence surface the package needs.
type Store interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// Service records and reads the activity log.
type Service struct {
	store Store
}

// NewService creates a service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record stores e. A failed write is logged and otherwise ignored so the
// action it describes still succeeds.
func (s *Service) Record(ctx context.Context, e Entry) {
	if _, err := s.store.Insert(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("activity: record %s by %v: %v", e.Action, deref(e.AdminID), err)
	}
}

// List returns entries matching f, newest first. Admin only.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter) ([]Entry, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Validation("invalid range", map[string]string{"to": "to must not be before from"})
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	return s.store.List(ctx, f)
}

// Get returns one entry. Admin only.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Entry, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Entry{}, err
	}
	return s.store.Get(ctx, id)
}

// By builds an entry attributed to actor.
func By(actor auth.Actor, action Action, targetID, description string) Entry {
	admin := actor.UserID
	return Entry{AdminID: &admin, Action: action, TargetID: targetID, Description: description}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
