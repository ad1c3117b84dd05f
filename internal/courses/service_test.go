package courses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/users"
)

type stubStore struct {
	courses map[string]Course
	members map[string]map[string]auth.Role
}

func newStubStore() *stubStore {
	return &stubStore{courses: map[string]Course{}, members: map[string]map[string]auth.Role{}}
}

func (s *stubStore) Create(_ context.Context, c Course) (Course, error) {
	for _, existing := range s.courses {
		if existing.Code == c.Code {
			return Course{}, apperr.Conflict("course code already exists")
		}
	}
	c.ID = "c" + c.Code
	s.courses[c.ID] = c
	return c, nil
}

func (s *stubStore) Get(_ context.Context, id string) (Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return Course{}, apperr.NotFound("course not found")
	}
	return c, nil
}

func (s *stubStore) List(context.Context, Filter) ([]Course, error) { return nil, nil }

func (s *stubStore) ForUser(_ context.Context, userID string) ([]Course, error) {
	var out []Course
	for id, m := range s.members {
		if _, ok := m[userID]; ok {
			out = append(out, s.courses[id])
		}
	}
	return out, nil
}

func (s *stubStore) Update(_ context.Context, c Course) (Course, error) {
	if _, ok := s.courses[c.ID]; !ok {
		return Course{}, apperr.NotFound("course not found")
	}
	s.courses[c.ID] = c
	return c, nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	delete(s.courses, id)
	return nil
}

func (s *stubStore) AddMember(_ context.Context, courseID, userID string, role auth.Role) error {
	if s.members[courseID] == nil {
		s.members[courseID] = map[string]auth.Role{}
	}
	if _, ok := s.members[courseID][userID]; ok {
		return apperr.Conflict("user is already a member of this course")
	}
	s.members[courseID][userID] = role
	return nil
}

func (s *stubStore) Members(_ context.Context, courseID string, role auth.Role) ([]Member, error) {
	var out []Member
	for id, r := range s.members[courseID] {
		if role == "" || r == role {
			out = append(out, Member{CourseID: courseID, UserID: id, Role: r})
		}
	}
	return out, nil
}

func (s *stubStore) RemoveMember(context.Context, string, string) error { return nil }

type stubDirectory struct {
	users map[string]users.User
	depts map[string]users.Department
}

func (d stubDirectory) GetUser(_ context.Context, id string) (users.User, error) {
	u, ok := d.users[id]
	if !ok {
		return users.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (d stubDirectory) GetDepartment(_ context.Context, id string) (users.Department, error) {
	dep, ok := d.depts[id]
	if !ok {
		return users.Department{}, apperr.NotFound("department not found")
	}
	return dep, nil
}

var admin = auth.Actor{UserID: "admin", Role: auth.RoleAdmin}

func newTestService() (*Service, *stubStore) {
	st := newStubStore()
	dir := stubDirectory{
		users: map[string]users.User{
			"s1":    {ID: "s1", Role: auth.RoleStudent},
			"l1":    {ID: "l1", Role: auth.RoleLecturer},
			"admin": {ID: "admin", Role: auth.RoleAdmin},
		},
		depts: map[string]users.Department{"d1": {ID: "d1", Name: "CS"}},
	}
	return NewService(st, dir), st
}

func TestCreateNormalisesCode(t *testing.T) {
	svc, _ := newTestService()
	dept := "d1"

	c, err := svc.Create(context.Background(), admin, Input{Code: " cs101 ", Name: "Intro", DepartmentID: &dept})

	require.NoError(t, err)
	assert.Equal(t, "CS101", c.Code)
	require.NotNil(t, c.DepartmentID)
	assert.Equal(t, "d1", *c.DepartmentID)
}

func TestCreateRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, auth.Actor{UserID: "l1", Role: auth.RoleLecturer}, Input{Code: "X", Name: "X"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.Create(ctx, admin, Input{Name: "No code"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missing := "nope"
	_, err = svc.Create(ctx, admin, Input{Code: "X", Name: "X", DepartmentID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Create(ctx, admin, Input{Code: "cs101", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, Input{Code: "CS101", Name: "B"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestAddMemberCopiesUserRole(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, admin, Input{Code: "CS101", Name: "Intro"})
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, admin, c.ID, MemberInput{UserID: "l1"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleLecturer, m.Role)
	assert.Equal(t, auth.RoleLecturer, st.members[c.ID]["l1"])

	_, err = svc.AddMember(ctx, admin, c.ID, MemberInput{UserID: "l1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.AddMember(ctx, admin, c.ID, MemberInput{UserID: "admin"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.AddMember(ctx, admin, c.ID, MemberInput{UserID: "ghost"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.AddMember(ctx, admin, "missing-course", MemberInput{UserID: "s1"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMembersFiltersByRole(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, admin, Input{Code: "CS101", Name: "Intro"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, admin, c.ID, MemberInput{UserID: "l1"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, admin, c.ID, MemberInput{UserID: "s1"})
	require.NoError(t, err)

	students, err := svc.Members(ctx, c.ID, "Student")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].UserID)

	_, err = svc.Members(ctx, c.ID, "janitor")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	mine, err := svc.ForUser(ctx, auth.Actor{UserID: "s1", Role: auth.RoleStudent}, "s1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.ForUser(ctx, auth.Actor{UserID: "s2", Role: auth.RoleStudent}, "s1")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
