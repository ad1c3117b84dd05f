package schedule

import (
	"context"
	"fmt"
	"strings"

	"attendtrack/internal/activity"
	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/courses"
	"attendtrack/internal/metrics"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
	"attendtrack/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, s Slot) (Slot, error)
	Get(ctx context.Context, id string) (Slot, error)
	List(ctx context.Context, f Filter) ([]Slot, error)
	ForStudent(ctx context.Context, studentID string) ([]Slot, error)
	Update(ctx context.Context, s Slot) (Slot, error)
	Delete(ctx context.Context, id string) error
}

// UserLookup resolves user accounts.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (users.User, error)
}

// CourseLookup resolves courses.
type CourseLookup interface {
	Get(ctx context.Context, id string) (courses.Course, error)
}

// Service manages class slots and enforces the no-overlap rule per lecturer.
type Service struct {
	store   Store
	users   UserLookup
	courses CourseLookup
	audit   activity.Recorder
}

// NewService creates a service. Lecturer reassignments are reported to audit.
func NewService(store Store, users UserLookup, courses CourseLookup, audit activity.Recorder) *Service {
	return &Service{store: store, users: users, courses: courses, audit: audit}
}

// Input creates or replaces a slot. LecturerID defaults to the acting lecturer.
type Input struct {
	LecturerID string `json:"lecturer_id"`
	CourseID   string `json:"course_id" binding:"required"`
	Classroom  string `json:"classroom" binding:"max=64"`
	DayOfWeek  string `json:"day_of_week" binding:"required,weekday"`
	StartTime  string `json:"start_time" binding:"required,clock"`
	EndTime    string `json:"end_time" binding:"required,clock"`
}

// HasConflict reports whether lecturerID already teaches on day in a slot that
// overlaps [start, end). The slot excludeID is ignored.
func (s *Service) HasConflict(ctx context.Context, lecturerID string, day Weekday, start, end Clock, excludeID string) (bool, error) {
	existing, err := s.store.List(ctx, Filter{LecturerID: lecturerID, Day: day})
	if err != nil {
		return false, err
	}
	return HasConflict(existing, day, start, end, excludeID), nil
}

// Create adds a slot. Lecturers create their own; admins may create for any lecturer.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Slot, error) {
	if err := auth.RequireRole(actor, auth.RoleLecturer, auth.RoleAdmin); err != nil {
		return Slot{}, err
	}
	slot, err := s.build(ctx, actor, in)
	if err != nil {
		return Slot{}, err
	}
	if err := s.checkFree(ctx, slot); err != nil {
		return Slot{}, err
	}
	return s.store.Create(ctx, slot)
}

// Update replaces a slot. Only its lecturer or an admin may do so, and only
// an admin may move it to another lecturer.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (Slot, error) {
	current, err := s.owned(ctx, actor, id)
	if err != nil {
		return Slot{}, err
	}
	if in.LecturerID == "" {
		in.LecturerID = current.LecturerID
	}
	slot, err := s.build(ctx, actor, in)
	if err != nil {
		return Slot{}, err
	}
	slot.ID = id
	if err := s.checkFree(ctx, slot); err != nil {
		return Slot{}, err
	}
	if slot, err = s.store.Update(ctx, slot); err != nil {
		return Slot{}, err
	}
	if slot.LecturerID != current.LecturerID {
		s.audit.Record(ctx, activity.By(actor, activity.ActionSlotReassign, id,
			fmt.Sprintf("moved slot from lecturer %s to %s", current.LecturerID, slot.LecturerID)))
	}
	return slot, nil
}

// Delete removes a slot. Owner or admin.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Get returns a slot.
func (s *Service) Get(ctx context.Context, id string) (Slot, error) {
	return s.store.Get(ctx, id)
}

// List returns slots in timetable order.
func (s *Service) List(ctx context.Context, f Filter) ([]Slot, error) {
	return s.store.List(ctx, f)
}

// StudentSchedule returns the weekly timetable of a student's courses.
func (s *Service) StudentSchedule(ctx context.Context, actor auth.Actor, studentID string) ([]Slot, error) {
	if err := auth.RequireSelfOr(actor, studentID, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, studentID)
	if err != nil {
		return nil, store.NotFoundAs(err, "student not found")
	}
	if u.Role != auth.RoleStudent {
		return nil, apperr.NotFound("student not found")
	}
	return s.store.ForStudent(ctx, studentID)
}

func (s *Service) owned(ctx context.Context, actor auth.Actor, id string) (Slot, error) {
	if err := auth.RequireRole(actor, auth.RoleLecturer, auth.RoleAdmin); err != nil {
		return Slot{}, err
	}
	slot, err := s.store.Get(ctx, id)
	if err != nil {
		return Slot{}, err
	}
	if actor.Role != auth.RoleAdmin && slot.LecturerID != actor.UserID {
		return Slot{}, apperr.Forbidden("class slot belongs to another lecturer")
	}
	return slot, nil
}

func (s *Service) build(ctx context.Context, actor auth.Actor, in Input) (Slot, error) {
	if err := validation.Struct(in); err != nil {
		return Slot{}, err
	}
	lecturerID := strings.TrimSpace(in.LecturerID)
	switch {
	case actor.Role == auth.RoleLecturer && lecturerID == "":
		lecturerID = actor.UserID
	case actor.Role == auth.RoleLecturer && lecturerID != actor.UserID:
		return Slot{}, apperr.Forbidden("lecturers can only schedule their own classes")
	case lecturerID == "":
		return Slot{}, apperr.Validation("validation failed", map[string]string{"lecturer_id": "lecturer_id is required"})
	}
	day, err := ParseWeekday(in.DayOfWeek)
	if err != nil {
		return Slot{}, apperr.Validation("validation failed", map[string]string{"day_of_week": err.Error()})
	}
	start, err := ParseClock(in.StartTime)
	if err != nil {
		return Slot{}, apperr.Validation("validation failed", map[string]string{"start_time": err.Error()})
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return Slot{}, apperr.Validation("validation failed", map[string]string{"end_time": err.Error()})
	}
	if start >= end {
		return Slot{}, apperr.Validation("validation failed", map[string]string{"end_time": "end_time must be after start_time"})
	}

	lecturer, err := s.users.GetUser(ctx, lecturerID)
	if err != nil {
		return Slot{}, store.NotFoundAs(err, "lecturer not found")
	}
	if lecturer.Role != auth.RoleLecturer {
		return Slot{}, apperr.Validation("validation failed", map[string]string{"lecturer_id": "user is not a lecturer"})
	}
	course, err := s.courses.Get(ctx, strings.TrimSpace(in.CourseID))
	if err != nil {
		return Slot{}, err
	}
	return Slot{
		LecturerID: lecturer.ID,
		CourseID:   course.ID,
		CourseCode: course.Code,
		CourseName: course.Name,
		Classroom:  strings.TrimSpace(in.Classroom),
		Day:        day,
		Start:      start,
		End:        end,
	}, nil
}

func (s *Service) checkFree(ctx context.Context, slot Slot) error {
	clash, err := s.HasConflict(ctx, slot.LecturerID, slot.Day, slot.Start, slot.End, slot.ID)
	if err != nil {
		return err
	}
	if clash {
		metrics.ScheduleConflicts.Inc()
		return apperr.Conflict("lecturer already has a class that overlaps this time")
	}
	return nil
}
