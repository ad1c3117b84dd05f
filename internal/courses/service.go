package courses

import (
	"context"
	"strings"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/users"
	"attendtrack/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, c Course) (Course, error)
	Get(ctx context.Context, id string) (Course, error)
	List(ctx context.Context, f Filter) ([]Course, error)
	ForUser(ctx context.Context, userID string) ([]Course, error)
	Update(ctx context.Context, c Course) (Course, error)
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, courseID, userID string, role auth.Role) error
	Members(ctx context.Context, courseID string, role auth.Role) ([]Member, error)
	RemoveMember(ctx context.Context, courseID, userID string) error
}

// Directory resolves users and departments referenced by courses.
type Directory interface {
	GetUser(ctx context.Context, id string) (users.User, error)
	GetDepartment(ctx context.Context, id string) (users.Department, error)
}

// Service manages courses and memberships.
type Service struct {
	store Store
	dir   Directory
}

// NewService creates a service.
func NewService(store Store, dir Directory) *Service {
	return &Service{store: store, dir: dir}
}

// Input creates or replaces a course.
type Input struct {
	Code         string  `json:"code" binding:"required,max=32"`
	Name         string  `json:"name" binding:"required"`
	DepartmentID *string `json:"department_id"`
}

// MemberInput adds a user to a course.
type MemberInput struct {
	UserID string `json:"user_id" binding:"required"`
}

// Create adds a course. Admin only.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Course, error) {
	c, err := s.prepare(ctx, actor, in)
	if err != nil {
		return Course{}, err
	}
	return s.store.Create(ctx, c)
}

// Update replaces code, name and department of course id. Admin only.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (Course, error) {
	c, err := s.prepare(ctx, actor, in)
	if err != nil {
		return Course{}, err
	}
	c.ID = id
	return s.store.Update(ctx, c)
}

func (s *Service) prepare(ctx context.Context, actor auth.Actor, in Input) (Course, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Course{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Course{}, err
	}
	c := Course{
		Code: strings.ToUpper(strings.TrimSpace(in.Code)),
		Name: strings.TrimSpace(in.Name),
	}
	if in.DepartmentID != nil && strings.TrimSpace(*in.DepartmentID) != "" {
		dept, err := s.dir.GetDepartment(ctx, strings.TrimSpace(*in.DepartmentID))
		if err != nil {
			return Course{}, err
		}
		c.DepartmentID = &dept.ID
	}
	return c, nil
}

// Get returns one course.
func (s *Service) Get(ctx context.Context, id string) (Course, error) {
	return s.store.Get(ctx, id)
}

// List returns courses matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Course, error) {
	return s.store.List(ctx, f)
}

// ForUser returns the courses a user belongs to.
func (s *Service) ForUser(ctx context.Context, actor auth.Actor, userID string) ([]Course, error) {
	if err := auth.RequireSelfOr(actor, userID, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return nil, err
	}
	return s.store.ForUser(ctx, userID)
}

// Delete removes a course. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// AddMember assigns a user to a course with the user's own role.
func (s *Service) AddMember(ctx context.Context, actor auth.Actor, courseID string, in MemberInput) (Member, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Member{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Member{}, err
	}
	if _, err := s.store.Get(ctx, courseID); err != nil {
		return Member{}, err
	}
	u, err := s.dir.GetUser(ctx, in.UserID)
	if err != nil {
		return Member{}, err
	}
	if u.Role == auth.RoleAdmin {
		return Member{}, apperr.Validation("admins cannot be course members", map[string]string{"user_id": "must be a student, tutor or lecturer"})
	}
	if err := s.store.AddMember(ctx, courseID, u.ID, u.Role); err != nil {
		return Member{}, err
	}
	return Member{CourseID: courseID, UserID: u.ID, Role: u.Role, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}, nil
}

// Members lists course members, optionally by role.
func (s *Service) Members(ctx context.Context, courseID string, role string) ([]Member, error) {
	var r auth.Role
	if role != "" {
		parsed, err := auth.ParseRole(role)
		if err != nil {
			return nil, apperr.Validation("invalid role", map[string]string{"role": err.Error()})
		}
		r = parsed
	}
	if _, err := s.store.Get(ctx, courseID); err != nil {
		return nil, err
	}
	return s.store.Members(ctx, courseID, r)
}

// RemoveMember unlinks a user from a course. Admin only.
func (s *Service) RemoveMember(ctx context.Context, actor auth.Actor, courseID, userID string) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	return s.store.RemoveMember(ctx, courseID, userID)
}
