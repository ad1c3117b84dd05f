package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendtrack/internal/activity"
	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/metrics"
	"attendtrack/internal/notify"
	"attendtrack/internal/schedule"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
	"attendtrack/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Find(ctx context.Context, slotID, studentID string) (*Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]Record, error)
}

// SlotLookup resolves class slots.
type SlotLookup interface {
	Get(ctx context.Context, id string) (schedule.Slot, error)
}

// UserLookup resolves user accounts.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (users.User, error)
}

// Notifier delivers check-in notices and schedules absence checks.
type Notifier interface {
	notify.Sink
	CheckAbsences(ctx context.Context, studentID string)
}

// Service coordinates check-ins, verification and record management.
type Service struct {
	store    Store
	slots    SlotLookup
	users    UserLookup
	notifier Notifier
	audit    activity.Recorder
	now      func() time.Time
}

// NewService creates a service.
func NewService(store Store, slots SlotLookup, users UserLookup, notifier Notifier, audit activity.Recorder) *Service {
	return &Service{store: store, slots: slots, users: users, notifier: notifier, audit: audit, now: time.Now}
}

// CheckInInput is a student's self check-in.
type CheckInInput struct {
	SlotID string `json:"slot_id" binding:"required"`
	Method string `json:"method" binding:"omitempty,oneof=qr gps code manual"`
}

// RecordInput creates a record on behalf of a student.
type RecordInput struct {
	SlotID    string `json:"slot_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required,attstatus"`
}

// UpdateInput changes the status of a record.
type UpdateInput struct {
	Status string `json:"status" binding:"required,attstatus"`
}

// CheckIn records the acting student as present in a slot and tells the slot's lecturer.
func (s *Service) CheckIn(ctx context.Context, actor auth.Actor, in CheckInInput) (Record, error) {
	if err := auth.RequireRole(actor, auth.RoleStudent); err != nil {
		return Record{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Record{}, err
	}
	student, err := s.student(ctx, actor.UserID)
	if err != nil {
		return Record{}, err
	}
	slot, err := s.slots.Get(ctx, in.SlotID)
	if err != nil {
		return Record{}, err
	}
	existing, err := s.store.Find(ctx, slot.ID, student.ID)
	if err != nil {
		metrics.CheckIns.WithLabelValues("error").Inc()
		return Record{}, err
	}
	if existing != nil {
		metrics.CheckIns.WithLabelValues("duplicate").Inc()
		if existing.Status == StatusPresent {
			return Record{}, apperr.Conflict("already checked in to this class")
		}
		return Record{}, apperr.Conflict("attendance already recorded as " + string(existing.Status))
	}

	method := in.Method
	if method == "" {
		method = "manual"
	}
	rec, err := s.store.Insert(ctx, Record{
		SlotID:     slot.ID,
		StudentID:  student.ID,
		Status:     StatusPresent,
		Method:     method,
		RecordedAt: s.now().UTC(),
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			metrics.CheckIns.WithLabelValues("duplicate").Inc()
		} else {
			metrics.CheckIns.WithLabelValues("error").Inc()
		}
		return Record{}, err
	}
	metrics.CheckIns.WithLabelValues("ok").Inc()

	s.notifier.Notify(ctx, notify.Notice{
		RecipientID: slot.LecturerID,
		Title:       "New Attendance Check-In",
		Message:     fmt.Sprintf("Student %s has checked in for %s", student.FullName(), slotLabel(slot)),
		Metadata:    map[string]any{"attendance_id": rec.ID, "slot_id": slot.ID, "student_id": student.ID},
	})
	return rec, nil
}

// Verify confirms a record as present. Only the lecturer who owns the slot may
// verify. Verifying an already verified record returns it unchanged.
func (s *Service) Verify(ctx context.Context, actor auth.Actor, recordID string) (Record, error) {
	if err := auth.RequireRole(actor, auth.RoleLecturer); err != nil {
		return Record{}, err
	}
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	slot, err := s.slots.Get(ctx, rec.SlotID)
	if err != nil {
		return Record{}, err
	}
	if slot.LecturerID != actor.UserID {
		return Record{}, apperr.Forbidden("you do not teach this class")
	}
	if rec.Status == StatusPresent && rec.VerifiedAt != nil && rec.MarkedBy != nil && *rec.MarkedBy == actor.UserID {
		return rec, nil
	}
	now := s.now().UTC()
	lecturer := actor.UserID
	rec.Status = StatusPresent
	rec.MarkedBy = &lecturer
	rec.VerifiedAt = &now
	return s.store.Update(ctx, rec)
}

// Create records attendance for a student. The slot's lecturer or an admin may do so.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in RecordInput) (Record, error) {
	if err := auth.RequireRole(actor, auth.RoleLecturer, auth.RoleAdmin); err != nil {
		return Record{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Record{}, err
	}
	status, _ := ParseStatus(in.Status)
	slot, err := s.ownedSlot(ctx, actor, in.SlotID)
	if err != nil {
		return Record{}, err
	}
	student, err := s.student(ctx, in.StudentID)
	if err != nil {
		return Record{}, err
	}
	if existing, err := s.store.Find(ctx, slot.ID, student.ID); err != nil {
		return Record{}, err
	} else if existing != nil {
		return Record{}, apperr.Conflict("attendance already recorded for this class")
	}
	marker := actor.UserID
	rec, err := s.store.Insert(ctx, Record{
		SlotID:     slot.ID,
		StudentID:  student.ID,
		Status:     status,
		Method:     "manual",
		RecordedAt: s.now().UTC(),
		MarkedBy:   &marker,
	})
	if err != nil {
		return Record{}, err
	}
	s.afterWrite(ctx, rec)
	return rec, nil
}

// Update changes the status of a record. The slot's lecturer or an admin may do so.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (Record, error) {
	if err := auth.RequireRole(actor, auth.RoleLecturer, auth.RoleAdmin); err != nil {
		return Record{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Record{}, err
	}
	status, _ := ParseStatus(in.Status)
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.ownedSlot(ctx, actor, rec.SlotID); err != nil {
		return Record{}, err
	}
	marker := actor.UserID
	wasAbsent := rec.Status == StatusAbsent
	rec.Status = status
	rec.MarkedBy = &marker
	rec, err = s.store.Update(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	if !wasAbsent {
		s.afterWrite(ctx, rec)
	}
	return rec, nil
}

// Delete removes a record. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, activity.By(actor, activity.ActionAttendanceDelete, id,
		fmt.Sprintf("deleted %s record of student %s in slot %s", rec.Status, rec.StudentID, rec.SlotID)))
	return nil
}

// Get returns a record. Students only see their own.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := auth.RequireSelfOr(actor, rec.StudentID, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns records matching f. Students are restricted to their own records.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter) ([]Record, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if actor.Role == auth.RoleStudent {
		f.StudentID = actor.UserID
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperr.Validation("from must not be after to", map[string]string{"from": "must not be after to"})
	}
	return s.store.List(ctx, f)
}

// afterWrite queues an absence check when rec has just become absent.
func (s *Service) afterWrite(ctx context.Context, rec Record) {
	if rec.Status == StatusAbsent {
		s.notifier.CheckAbsences(ctx, rec.StudentID)
	}
}

func (s *Service) student(ctx context.Context, id string) (users.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return users.User{}, store.NotFoundAs(err, "student not found")
	}
	if u.Role != auth.RoleStudent {
		return users.User{}, apperr.NotFound("student not found")
	}
	return u, nil
}

func (s *Service) ownedSlot(ctx context.Context, actor auth.Actor, slotID string) (schedule.Slot, error) {
	slot, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return schedule.Slot{}, err
	}
	if actor.Role != auth.RoleAdmin && slot.LecturerID != actor.UserID {
		return schedule.Slot{}, apperr.Forbidden("you do not teach this class")
	}
	return slot, nil
}

func slotLabel(slot schedule.Slot) string {
	name := strings.TrimSpace(slot.CourseCode + " " + slot.CourseName)
	if name == "" {
		name = "class"
	}
	return fmt.Sprintf("%s (%s %s-%s)", name, slot.Day, slot.Start, slot.End)
}
