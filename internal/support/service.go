package support

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"attendtrack/internal/activity"
	"attendtrack/internal/auth"
	"attendtrack/internal/notify"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
	"attendtrack/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, t Ticket) (Ticket, error)
	Get(ctx context.Context, id string) (Ticket, error)
	List(ctx context.Context, f Filter) ([]Ticket, error)
	Update(ctx context.Context, t Ticket) (Ticket, error)
	Delete(ctx context.Context, id string) error
}

// Directory resolves users and the admins who receive new tickets.
type Directory interface {
	GetUser(ctx context.Context, id string) (users.User, error)
	Admins(ctx context.Context) ([]users.User, error)
}

// Service manages support tickets.
type Service struct {
	store Store
	users Directory
	sink  notify.Sink
	audit activity.Recorder
	now   func() time.Time
}

// NewService creates a service.
func NewService(store Store, users Directory, sink notify.Sink, audit activity.Recorder) *Service {
	return &Service{store: store, users: users, sink: sink, audit: audit, now: time.Now}
}

// CreateInput opens a ticket for the acting user.
type CreateInput struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Query   string `json:"query" binding:"required"`
}

// ResolveInput answers a ticket.
type ResolveInput struct {
	Response string `json:"response" binding:"required"`
}

// ListInput narrows List.
type ListInput struct {
	Status string `form:"status"`
	UserID string `form:"user_id"`
	Search string `form:"search"`
}

// Create opens a ticket and tells every admin about it.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (Ticket, error) {
	if err := validation.Struct(in); err != nil {
		return Ticket{}, err
	}
	owner, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return Ticket{}, store.NotFoundAs(err, "user not found")
	}
	t, err := s.store.Insert(ctx, Ticket{
		UserID:  owner.ID,
		Subject: strings.TrimSpace(in.Subject),
		Query:   in.Query,
		Status:  StatusOpen,
	})
	if err != nil {
		return Ticket{}, err
	}
	admins, err := s.users.Admins(ctx)
	if err != nil {
		log.Printf("support: ticket %s: admin lookup: %v", t.ID, err)
		return t, nil
	}
	for _, admin := range admins {
		s.sink.Notify(ctx, notify.Notice{
			RecipientID: admin.ID,
			Title:       "New Support Ticket",
			Message:     fmt.Sprintf("New support ticket from %s: %s", owner.FullName(), t.Subject),
			Metadata:    map[string]any{"ticket_id": t.ID, "user_id": owner.ID},
		})
	}
	return t, nil
}

// Resolve records the admin's response and tells the owner.
func (s *Service) Resolve(ctx context.Context, actor auth.Actor, id string, in ResolveInput) (Ticket, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Ticket{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Ticket{}, err
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	now := s.now().UTC()
	resolver := actor.UserID
	t.Response = in.Response
	t.Status = StatusResolved
	t.ResolvedBy = &resolver
	t.ResolvedAt = &now
	t, err = s.store.Update(ctx, t)
	if err != nil {
		return Ticket{}, err
	}
	s.sink.Notify(ctx, notify.Notice{
		RecipientID: t.UserID,
		Title:       "Support Ticket Resolved",
		Message:     fmt.Sprintf("Your support ticket %q has been resolved", t.Subject),
		Metadata:    map[string]any{"ticket_id": t.ID},
	})
	s.audit.Record(ctx, activity.By(actor, activity.ActionTicketResolve, t.ID,
		fmt.Sprintf("resolved ticket %q", t.Subject)))
	return t, nil
}

// SetStatus moves a ticket to another status. Leaving resolved clears the resolution stamp.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, id, status string) (Ticket, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Ticket{}, err
	}
	st, err := ParseStatus(status)
	if err != nil {
		return Ticket{}, err
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	switch {
	case st == StatusResolved && t.ResolvedAt == nil:
		now := s.now().UTC()
		resolver := actor.UserID
		t.ResolvedAt, t.ResolvedBy = &now, &resolver
	case st == StatusOpen || st == StatusInProgress:
		t.ResolvedAt, t.ResolvedBy = nil, nil
	}
	prev := t.Status
	t.Status = st
	if t, err = s.store.Update(ctx, t); err != nil {
		return Ticket{}, err
	}
	s.audit.Record(ctx, activity.By(actor, activity.ActionTicketStatus, t.ID,
		fmt.Sprintf("moved ticket %q from %s to %s", t.Subject, prev, st)))
	return t, nil
}

// List returns tickets. Non-admins only ever see their own.
func (s *Service) List(ctx context.Context, actor auth.Actor, in ListInput) ([]Ticket, error) {
	f := Filter{UserID: in.UserID, Search: strings.TrimSpace(in.Search)}
	if in.Status != "" {
		st, err := ParseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	if !actor.Is(auth.RoleAdmin) {
		f.UserID = actor.UserID
	}
	return s.store.List(ctx, f)
}

// Get returns a ticket to its owner or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Ticket, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if err := auth.RequireSelfOr(actor, t.UserID, auth.RoleAdmin); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
