package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/config"
	"attendtrack/internal/metrics"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	Get(ctx context.Context, id string) (Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) (Notification, error)
	CountAbsences(ctx context.Context, studentID string, since time.Time) (int, error)
	HasNotice(ctx context.Context, recipientID, kind, studentID string, since time.Time) (bool, error)
}

// Absence notice kinds, stored in notification metadata under "type".
const (
	KindAbsenceWarning    = "absence_warning"
	KindAbsenceEscalation = "absence_escalation"
)

// Directory resolves recipients and the current admins.
type Directory interface {
	GetUser(ctx context.Context, id string) (users.User, error)
	Admins(ctx context.Context) ([]users.User, error)
}

// Service stores notifications and watches absence patterns.
type Service struct {
	store  Store
	users  Directory
	policy config.AbsencePolicy
	now    func() time.Time
}

// NewService creates a service.
func NewService(store Store, users Directory, policy config.AbsencePolicy) *Service {
	return &Service{store: store, users: users, policy: policy, now: time.Now}
}

// Create stores a notice for its recipient, who must exist.
func (s *Service) Create(ctx context.Context, n Notice) (Notification, error) {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return Notification{}, apperr.Validation("title and message are required", nil)
	}
	if _, err := s.users.GetUser(ctx, n.RecipientID); err != nil {
		return Notification{}, store.NotFoundAs(err, "recipient not found")
	}
	created, err := s.store.Insert(ctx, Notification{
		UserID:   n.RecipientID,
		Title:    n.Title,
		Message:  n.Message,
		Metadata: n.Metadata,
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return Notification{}, err
	}
	metrics.Notifications.WithLabelValues("stored").Inc()
	return created, nil
}

// List returns the actor's newest notifications. limit defaults to 20.
func (s *Service) List(ctx context.Context, actor auth.Actor, unreadOnly bool, limit int) ([]Notification, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.List(ctx, actor.UserID, unreadOnly, limit)
}

// MarkRead marks a notification read. Only its recipient may do so.
func (s *Service) MarkRead(ctx context.Context, actor auth.Actor, id string) (Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != actor.UserID {
		return Notification{}, apperr.Forbidden("notification belongs to another user")
	}
	if n.IsRead {
		return n, nil
	}
	return s.store.MarkRead(ctx, id, s.now().UTC())
}

// CheckAbsencePatterns counts the student's absences within the policy window.
// Reaching WarningAt sends the student a warning; reaching EscalationAt also
// sends every admin an escalation. Each recipient gets at most one of each
// kind per student within the window, however often the check runs.
func (s *Service) CheckAbsencePatterns(ctx context.Context, studentID string) (AbsenceReport, error) {
	student, err := s.users.GetUser(ctx, studentID)
	if err != nil {
		return AbsenceReport{}, store.NotFoundAs(err, "student not found")
	}
	since := s.now().Add(-s.policy.Window)
	count, err := s.store.CountAbsences(ctx, studentID, since)
	if err != nil {
		return AbsenceReport{}, err
	}
	report := AbsenceReport{StudentID: studentID, Absences: count}
	days := int(s.policy.Window / (24 * time.Hour))

	if count >= s.policy.WarningAt {
		sent, err := s.sendOnce(ctx, since, Notice{
			RecipientID: studentID,
			Title:       "Attendance Warning",
			Message:     fmt.Sprintf("You have been absent %d times in the last %d days. Please improve your attendance.", count, days),
			Metadata:    map[string]any{"student_id": studentID, "absence_count": count, "type": KindAbsenceWarning},
		})
		if err != nil {
			return report, err
		}
		report.Warned = sent
	}

	if count >= s.policy.EscalationAt {
		admins, err := s.users.Admins(ctx)
		if err != nil {
			return report, err
		}
		for _, admin := range admins {
			sent, err := s.sendOnce(ctx, since, Notice{
				RecipientID: admin.ID,
				Title:       "Student Attendance Concern",
				Message:     fmt.Sprintf("Student %s has been absent %d times in the last %d days.", student.FullName(), count, days),
				Metadata:    map[string]any{"student_id": studentID, "absence_count": count, "type": KindAbsenceEscalation},
			})
			if err != nil {
				return report, err
			}
			if sent {
				report.Escalations++
			}
		}
	}
	return report, nil
}

// sendOnce creates n unless its recipient already got a notice of the same
// kind about the same student since the given time.
func (s *Service) sendOnce(ctx context.Context, since time.Time, n Notice) (bool, error) {
	kind, _ := n.Metadata["type"].(string)
	studentID, _ := n.Metadata["student_id"].(string)
	exists, err := s.store.HasNotice(ctx, n.RecipientID, kind, studentID, since)
	if err != nil || exists {
		return false, err
	}
	if _, err := s.Create(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

// RequestCheck runs an absence check on behalf of staff.
func (s *Service) RequestCheck(ctx context.Context, actor auth.Actor, studentID string) (AbsenceReport, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return AbsenceReport{}, err
	}
	return s.CheckAbsencePatterns(ctx, studentID)
}
