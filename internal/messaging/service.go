package messaging

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/notify"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
	"attendtrack/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, m Message) (Message, error)
	Get(ctx context.Context, id string) (Message, error)
	Received(ctx context.Context, userID string) ([]Message, error)
	SentBy(ctx context.Context, userID string) ([]Message, error)
	Between(ctx context.Context, a, b string) ([]Message, error)
}

// UserLookup resolves user accounts.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (users.User, error)
}

// Service sends and reads direct messages.
type Service struct {
	store Store
	users UserLookup
	sink  notify.Sink
}

// NewService creates a service.
func NewService(store Store, users UserLookup, sink notify.Sink) *Service {
	return &Service{store: store, users: users, sink: sink}
}

// SendInput is a new message from the acting user.
type SendInput struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Subject    string `json:"subject" binding:"max=200"`
	Content    string `json:"content" binding:"required"`
}

// Send delivers a message from the actor and notifies the receiver.
func (s *Service) Send(ctx context.Context, actor auth.Actor, in SendInput) (Message, error) {
	if err := validation.Struct(in); err != nil {
		return Message{}, err
	}
	sender, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return Message{}, store.NotFoundAs(err, "sender not found")
	}
	receiver, err := s.users.GetUser(ctx, in.ReceiverID)
	if err != nil {
		return Message{}, store.NotFoundAs(err, "recipient not found")
	}
	if sender.ID == receiver.ID {
		return Message{}, apperr.Validation("cannot send a message to yourself", map[string]string{"receiver_id": "must be another user"})
	}
	m, err := s.store.Insert(ctx, Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Subject:    strings.TrimSpace(in.Subject),
		Content:    in.Content,
	})
	if err != nil {
		return Message{}, err
	}
	s.sink.Notify(ctx, notify.Notice{
		RecipientID: receiver.ID,
		Title:       "New Message Received",
		Message:     "You have a new message from " + sender.FullName(),
		Metadata:    map[string]any{"message_id": m.ID, "sender_id": sender.ID},
	})
	return m, nil
}

// Inbox lists messages received by the actor.
func (s *Service) Inbox(ctx context.Context, actor auth.Actor) ([]Message, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.store.Received(ctx, actor.UserID)
}

// Sent lists messages sent by the actor.
func (s *Service) Sent(ctx context.Context, actor auth.Actor) ([]Message, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.store.SentBy(ctx, actor.UserID)
}

// Thread returns the conversation between the actor and otherID, oldest first.
func (s *Service) Thread(ctx context.Context, actor auth.Actor, otherID string) ([]Message, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range []string{actor.UserID, otherID} {
		id := id
		g.Go(func() error {
			_, err := s.users.GetUser(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, store.NotFoundAs(err, "one or both users not found")
	}
	return s.store.Between(ctx, actor.UserID, otherID)
}

// Get returns a message to its sender or receiver.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Message, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if actor.UserID != m.SenderID && actor.UserID != m.ReceiverID {
		return Message{}, apperr.Forbidden("message belongs to other users")
	}
	return m, nil
}
