package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/activity"
	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
)

type auditLog struct{ entries []activity.Entry }

func (a *auditLog) Record(_ context.Context, e activity.Entry) { a.entries = append(a.entries, e) }

func audited(svc *Service) []activity.Entry { return svc.audit.(*auditLog).entries }

type memStore struct {
	users   map[string]User
	depts   map[string]Department
	refresh map[string]string
}

func newMemStore() *memStore {
	return &memStore{users: map[string]User{}, depts: map[string]Department{}, refresh: map[string]string{}}
}

func (m *memStore) CreateUser(_ context.Context, u User) (User, error) {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, apperr.Conflict("email already in use")
		}
	}
	u.ID = uuid.NewString()
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, apperr.NotFound("user not found")
}

func (m *memStore) ListUsers(_ context.Context, f ListFilter) ([]User, error) {
	var out []User
	for _, u := range m.users {
		if f.Role == "" || u.Role == f.Role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) UpdateProfile(_ context.Context, u User) (User, error) {
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, hash string) error {
	u := m.users[id]
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) SaveRefreshToken(_ context.Context, userID, token string, _ time.Time) error {
	m.refresh[token] = userID
	return nil
}

func (m *memStore) ConsumeRefreshToken(_ context.Context, token string) (string, error) {
	id, ok := m.refresh[token]
	if !ok {
		return "", apperr.Unauthorized("refresh token revoked or expired")
	}
	delete(m.refresh, token)
	return id, nil
}

func (m *memStore) RevokeRefreshToken(_ context.Context, token string) error {
	delete(m.refresh, token)
	return nil
}

func (m *memStore) CreateDepartment(_ context.Context, d Department) (Department, error) {
	d.ID = uuid.NewString()
	m.depts[d.ID] = d
	return d, nil
}

func (m *memStore) GetDepartment(_ context.Context, id string) (Department, error) {
	d, ok := m.depts[id]
	if !ok {
		return Department{}, apperr.NotFound("department not found")
	}
	return d, nil
}

func (m *memStore) ListDepartments(context.Context, string) ([]Department, error) {
	var out []Department
	for _, d := range m.depts {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStore) UpdateDepartment(_ context.Context, d Department) (Department, error) {
	m.depts[d.ID] = d
	return d, nil
}

func (m *memStore) DeleteDepartment(_ context.Context, id string) error {
	delete(m.depts, id)
	return nil
}

func newTestService() (*Service, *memStore) {
	st := newMemStore()
	issuer := auth.Issuer{Name: "test", Key: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour}
	return NewService(st, issuer, &auditLog{}), st
}

func registerStudent(t *testing.T, svc *Service, email string) User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Email: email, Password: "password123", FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAlwaysCreatesStudent(t *testing.T) {
	svc, _ := newTestService()

	u := registerStudent(t, svc, "Ada@Example.com")

	assert.Equal(t, auth.RoleStudent, u.Role)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "password123", u.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	registerStudent(t, svc, "ada@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "ADA@example.com", Password: "password123", FirstName: "A", LastName: "B",
	})

	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{Email: "nope", Password: "short"})

	require.True(t, apperr.Is(err, apperr.KindValidation))
	fields := apperr.As(err).Fields
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Equal(t, "first_name is required", fields["first_name"])
}

func TestRegisterUnknownDepartment(t *testing.T) {
	svc, _ := newTestService()
	dept := "missing"

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Password: "password123", FirstName: "A", LastName: "B", DepartmentID: &dept,
	})

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	in := CreateInput{Email: "l@example.com", Password: "password123", Role: "lecturer"}

	_, err := svc.Create(context.Background(), auth.Actor{UserID: "u1", Role: auth.RoleLecturer}, in)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	u, err := svc.Create(context.Background(), auth.Actor{UserID: "a1", Role: auth.RoleAdmin}, in)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleLecturer, u.Role)

	log := audited(svc)
	require.Len(t, log, 1, "only the admin's successful create is recorded")
	assert.Equal(t, activity.ActionUserCreate, log[0].Action)
	assert.Equal(t, "a1", *log[0].AdminID)
	assert.Equal(t, u.ID, log[0].TargetID)
	assert.Equal(t, "created lecturer account l@example.com", log[0].Description)
}

func TestLoginAndRefreshRotation(t *testing.T) {
	svc, st := newTestService()
	u := registerStudent(t, svc, "ada@example.com")
	ctx := context.Background()

	_, err := svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	sess, err := svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)
	assert.Contains(t, st.refresh, sess.Tokens.RefreshToken)

	next, err := svc.Refresh(ctx, sess.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Tokens.RefreshToken, next.Tokens.RefreshToken)

	_, err = svc.Refresh(ctx, sess.Tokens.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "a consumed refresh token cannot be reused")

	_, err = svc.Refresh(ctx, next.Tokens.AccessToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "access tokens are not refresh tokens")

	require.NoError(t, svc.Logout(ctx, next.Tokens.RefreshToken))
	_, err = svc.Refresh(ctx, next.Tokens.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestUpdateProfileRejectsProtectedFields(t *testing.T) {
	svc, _ := newTestService()
	u := registerStudent(t, svc, "ada@example.com")
	self := auth.Actor{UserID: u.ID, Role: auth.RoleStudent}
	ctx := context.Background()

	for _, in := range []ProfileInput{{Email: "x@example.com"}, {Role: "admin"}, {Password: "newpassword"}} {
		_, err := svc.UpdateProfile(ctx, self, u.ID, in)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	}

	name := "Augusta"
	got, err := svc.UpdateProfile(ctx, self, u.ID, ProfileInput{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)

	other := registerStudent(t, svc, "bob@example.com")
	_, err = svc.UpdateProfile(ctx, auth.Actor{UserID: other.ID, Role: auth.RoleStudent}, u.ID, ProfileInput{FirstName: &name})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService()
	u := registerStudent(t, svc, "ada@example.com")
	self := auth.Actor{UserID: u.ID, Role: auth.RoleStudent}
	ctx := context.Background()

	err := svc.ChangePassword(ctx, self, PasswordInput{Current: "bad-password", New: "another-password"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, self, PasswordInput{Current: "password123", New: "another-password"}))
	_, err = svc.Login(ctx, "ada@example.com", "another-password")
	assert.NoError(t, err)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "root@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, created)

	admins, err := svc.Admins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestDeleteGuards(t *testing.T) {
	svc, _ := newTestService()
	u := registerStudent(t, svc, "ada@example.com")
	admin := auth.Actor{UserID: "admin-1", Role: auth.RoleAdmin}
	ctx := context.Background()

	assert.True(t, apperr.Is(svc.Delete(ctx, auth.Actor{UserID: u.ID, Role: auth.RoleStudent}, u.ID), apperr.KindForbidden))
	assert.True(t, apperr.Is(svc.Delete(ctx, admin, admin.UserID), apperr.KindValidation))
	assert.NoError(t, svc.Delete(ctx, admin, u.ID))
	assert.True(t, apperr.Is(svc.Delete(ctx, admin, u.ID), apperr.KindNotFound))

	log := audited(svc)
	require.Len(t, log, 1)
	assert.Equal(t, activity.ActionUserDelete, log[0].Action)
	assert.Equal(t, u.ID, log[0].TargetID)
}

func TestDepartmentsAdminOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateDepartment(ctx, auth.Actor{UserID: "t", Role: auth.RoleTutor}, DepartmentInput{Name: "CS"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	d, err := svc.CreateDepartment(ctx, auth.Actor{UserID: "a", Role: auth.RoleAdmin}, DepartmentInput{Name: " CS ", Faculty: "Science"})
	require.NoError(t, err)
	assert.Equal(t, "CS", d.Name)

	_, err = svc.CreateDepartment(ctx, auth.Actor{UserID: "a", Role: auth.RoleAdmin}, DepartmentInput{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
