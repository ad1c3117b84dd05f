package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"attendtrack/internal/activity"
	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, f ListFilter) ([]User, error)
	UpdateProfile(ctx context.Context, u User) (User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	DeleteUser(ctx context.Context, id string) error

	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ConsumeRefreshToken(ctx context.Context, token string) (string, error)
	RevokeRefreshToken(ctx context.Context, token string) error

	CreateDepartment(ctx context.Context, d Department) (Department, error)
	GetDepartment(ctx context.Context, id string) (Department, error)
	ListDepartments(ctx context.Context, faculty string) ([]Department, error)
	UpdateDepartment(ctx context.Context, d Department) (Department, error)
	DeleteDepartment(ctx context.Context, id string) error
}

// Service handles accounts, authentication and departments.
type Service struct {
	store  Store
	tokens auth.Issuer
	audit  activity.Recorder
}

// NewService creates a service backed by a store. Admin actions are reported
// to audit.
func NewService(store Store, tokens auth.Issuer, audit activity.Recorder) *Service {
	return &Service{store: store, tokens: tokens, audit: audit}
}

// RegisterInput is the public self-registration request. It always creates a student.
type RegisterInput struct {
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=8"`
	FirstName    string  `json:"first_name" binding:"required"`
	LastName     string  `json:"last_name" binding:"required"`
	DepartmentID *string `json:"department_id"`
}

// CreateInput is an admin request to create an account of any role.
type CreateInput struct {
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=8"`
	Role         string  `json:"role" binding:"required,role"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	DepartmentID *string `json:"department_id"`
}

// ProfileInput updates profile fields. Email, role and password are rejected here.
type ProfileInput struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	DepartmentID *string `json:"department_id"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	Password     string  `json:"password"`
}

// PasswordInput changes the caller's password.
type PasswordInput struct {
	Current string `json:"current_password" binding:"required"`
	New     string `json:"new_password" binding:"required,min=8"`
}

// DepartmentInput creates or updates a department.
type DepartmentInput struct {
	Name    string `json:"name" binding:"required"`
	Faculty string `json:"faculty"`
}

// Session is the result of a successful login or refresh.
type Session struct {
	Tokens auth.TokenPair `json:"tokens"`
	User   User           `json:"user"`
}

// Register creates a student account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}
	return s.create(ctx, CreateInput{
		Email:        in.Email,
		Password:     in.Password,
		Role:         string(auth.RoleStudent),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DepartmentID: in.DepartmentID,
	})
}

// Create lets an admin create an account of any role.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (User, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return User{}, err
	}
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}
	u, err := s.create(ctx, in)
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, activity.By(actor, activity.ActionUserCreate, u.ID,
		fmt.Sprintf("created %s account %s", u.Role, u.Email)))
	return u, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (User, error) {
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return User{}, apperr.Validation("invalid role", map[string]string{"role": err.Error()})
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return User{}, apperr.Conflict("email already in use")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return User{}, err
	}
	if err := s.checkDepartment(ctx, in.DepartmentID); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, apperr.Internal("hash password", err)
	}
	return s.store.CreateUser(ctx, User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		DepartmentID: emptyToNil(in.DepartmentID),
	})
}

// EnsureAdmin creates an admin account for email unless one already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.create(ctx, CreateInput{Email: email, Password: password, Role: string(auth.RoleAdmin), FirstName: "Admin"})
	if apperr.Is(err, apperr.KindConflict) {
		return false, nil
	}
	return err == nil, err
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Session{}, apperr.Unauthorized("invalid credentials")
		}
		return Session{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented token is revoked and a new pair issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return Session{}, apperr.Unauthorized("invalid refresh token")
	}
	userID, err := s.store.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}
	if userID != claims.Subject {
		return Session{}, apperr.Unauthorized("invalid refresh token")
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Session{}, apperr.Unauthorized("account no longer exists")
		}
		return Session{}, err
	}
	return s.issue(ctx, u)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.store.RevokeRefreshToken(ctx, refreshToken)
}

func (s *Service) issue(ctx context.Context, u User) (Session, error) {
	pair, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, apperr.Internal("token issue failed", err)
	}
	if err := s.store.SaveRefreshToken(ctx, u.ID, pair.RefreshToken, pair.RefreshExp); err != nil {
		return Session{}, err
	}
	return Session{Tokens: pair, User: u}, nil
}

// Get returns a profile. Users see themselves; staff see anyone.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (User, error) {
	if err := auth.RequireSelfOr(actor, id, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return User{}, err
	}
	return s.store.GetUser(ctx, id)
}

// List returns users matching f. Staff only.
func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter) ([]User, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, f)
}

// Admins returns every admin account.
func (s *Service) Admins(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx, ListFilter{Role: auth.RoleAdmin})
}

// UpdateProfile changes names and department of id. Self or admin.
func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, id string, in ProfileInput) (User, error) {
	if err := auth.RequireSelfOr(actor, id, auth.RoleAdmin); err != nil {
		return User{}, err
	}
	for field, v := range map[string]string{"email": in.Email, "role": in.Role, "password": in.Password} {
		if v != "" {
			return User{}, apperr.Forbidden("cannot update " + field + " through this endpoint")
		}
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.DepartmentID != nil {
		if err := s.checkDepartment(ctx, in.DepartmentID); err != nil {
			return User{}, err
		}
		u.DepartmentID = emptyToNil(in.DepartmentID)
	}
	return s.store.UpdateProfile(ctx, u)
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Actor, in PasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	u, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(u.PasswordHash, in.Current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperr.Unauthorized("current password is incorrect")
		}
		return apperr.Internal("check password", err)
	}
	hash, err := auth.HashPassword(in.New)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	return s.store.UpdatePassword(ctx, u.ID, hash)
}

// Delete removes an account. Admin only; admins cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	if actor.UserID == id {
		return apperr.Validation("cannot delete your own account", nil)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, activity.By(actor, activity.ActionUserDelete, id, "deleted user "+id))
	return nil
}

// CreateDepartment adds a department. Admin only.
func (s *Service) CreateDepartment(ctx context.Context, actor auth.Actor, in DepartmentInput) (Department, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Department{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Department{}, err
	}
	return s.store.CreateDepartment(ctx, Department{Name: strings.TrimSpace(in.Name), Faculty: strings.TrimSpace(in.Faculty)})
}

// Department returns one department.
func (s *Service) Department(ctx context.Context, id string) (Department, error) {
	return s.store.GetDepartment(ctx, id)
}

// Departments lists departments, optionally for one faculty.
func (s *Service) Departments(ctx context.Context, faculty string) ([]Department, error) {
	return s.store.ListDepartments(ctx, strings.TrimSpace(faculty))
}

// UpdateDepartment renames a department. Admin only.
func (s *Service) UpdateDepartment(ctx context.Context, actor auth.Actor, id string, in DepartmentInput) (Department, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Department{}, err
	}
	if err := validation.Struct(in); err != nil {
		return Department{}, err
	}
	return s.store.UpdateDepartment(ctx, Department{ID: id, Name: strings.TrimSpace(in.Name), Faculty: strings.TrimSpace(in.Faculty)})
}

// DeleteDepartment removes a department. Admin only.
func (s *Service) DeleteDepartment(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	return s.store.DeleteDepartment(ctx, id)
}

func (s *Service) checkDepartment(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	_, err := s.store.GetDepartment(ctx, *id)
	return err
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
