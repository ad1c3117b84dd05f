package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/config"
	"attendtrack/internal/queue"
	"attendtrack/internal/users"
)

type memStore struct {
	mu       sync.Mutex
	items    []Notification
	absences map[string][]time.Time
}

func newMemStore() *memStore { return &memStore{absences: map[string][]time.Time{}} }

func (m *memStore) Insert(_ context.Context, n Notification) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = fmt.Sprintf("n%d", len(m.items)+1)
	n.CreatedAt = fixedNow
	m.items = append(m.items, n)
	return n, nil
}

func (m *memStore) Get(_ context.Context, id string) (Notification, error) {
	for _, n := range m.items {
		if n.ID == id {
			return n, nil
		}
	}
	return Notification{}, apperr.NotFound("notification not found")
}

func (m *memStore) List(_ context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, id string, at time.Time) (Notification, error) {
	for i, n := range m.items {
		if n.ID == id {
			m.items[i].IsRead = true
			m.items[i].ReadAt = &at
			return m.items[i], nil
		}
	}
	return Notification{}, apperr.NotFound("notification not found")
}

func (m *memStore) CountAbsences(_ context.Context, studentID string, since time.Time) (int, error) {
	n := 0
	for _, at := range m.absences[studentID] {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) HasNotice(_ context.Context, recipientID, kind, studentID string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.UserID == recipientID && n.Metadata["type"] == kind && n.Metadata["student_id"] == studentID && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *memStore) to(userID string) []Notification {
	var out []Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type directory map[string]users.User

func (d directory) GetUser(_ context.Context, id string) (users.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return users.User{}, apperr.NotFound("user not found")
}

func (d directory) Admins(context.Context) ([]users.User, error) {
	var out []users.User
	for _, u := range d {
		if u.Role == auth.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

var fixedNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memStore) {
	st := newMemStore()
	dir := directory{
		"s1": {ID: "s1", Role: auth.RoleStudent, FirstName: "Sam", LastName: "Lee"},
		"a1": {ID: "a1", Role: auth.RoleAdmin},
		"a2": {ID: "a2", Role: auth.RoleAdmin},
		"l1": {ID: "l1", Role: auth.RoleLecturer},
	}
	svc := NewService(st, dir, config.AbsencePolicy{Window: 30 * 24 * time.Hour, WarningAt: 3, EscalationAt: 5})
	svc.now = func() time.Time { return fixedNow }
	return svc, st
}

func addAbsences(st *memStore, studentID string, n int) {
	for i := 0; i < n; i++ {
		st.absences[studentID] = append(st.absences[studentID], fixedNow.Add(-time.Duration(i+1)*24*time.Hour))
	}
}

func TestAbsencePatternThresholds(t *testing.T) {
	cases := []struct {
		absences        int
		wantWarnings    int
		wantEscalations int
	}{
		{2, 0, 0},
		{3, 1, 0},
		{4, 1, 0},
		{5, 1, 1},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d absences", tc.absences), func(t *testing.T) {
			svc, st := newTestService()
			addAbsences(st, "s1", tc.absences)

			report, err := svc.CheckAbsencePatterns(context.Background(), "s1")

			require.NoError(t, err)
			assert.Equal(t, tc.absences, report.Absences)
			assert.Len(t, st.to("s1"), tc.wantWarnings)
			assert.Len(t, st.to("a1"), tc.wantEscalations)
			assert.Len(t, st.to("a2"), tc.wantEscalations)
			assert.Empty(t, st.to("l1"))
			assert.Equal(t, 2*tc.wantEscalations, report.Escalations)
		})
	}
}

func TestRepeatedChecksNotifyOncePerThreshold(t *testing.T) {
	svc, st := newTestService()
	w := NewWorker(svc)
	msg, err := queue.NewMessage(MsgAbsenceCheck, absenceCheck{StudentID: "s1"})
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		addAbsences(st, "s1", 1)
		require.NoError(t, w.Handle(context.Background(), msg), "absence %d", i)
	}

	assert.Len(t, st.to("s1"), 1, "one warning")
	assert.Len(t, st.to("a1"), 1, "one escalation per admin")
	assert.Len(t, st.to("a2"), 1, "one escalation per admin")
}

func TestManualCheckAfterWarningSendsNothingNew(t *testing.T) {
	svc, st := newTestService()
	addAbsences(st, "s1", 3)

	first, err := svc.CheckAbsencePatterns(context.Background(), "s1")
	require.NoError(t, err)
	second, err := svc.CheckAbsencePatterns(context.Background(), "s1")
	require.NoError(t, err)

	assert.True(t, first.Warned)
	assert.False(t, second.Warned)
	assert.Equal(t, 3, second.Absences)
	assert.Len(t, st.to("s1"), 1)
}

func TestAbsencesOutsideWindowIgnored(t *testing.T) {
	svc, st := newTestService()
	addAbsences(st, "s1", 2)
	st.absences["s1"] = append(st.absences["s1"], fixedNow.Add(-31*24*time.Hour), fixedNow.Add(-40*24*time.Hour))

	report, err := svc.CheckAbsencePatterns(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, 2, report.Absences)
	assert.False(t, report.Warned)
}

func TestWarningContent(t *testing.T) {
	svc, st := newTestService()
	addAbsences(st, "s1", 5)

	_, err := svc.CheckAbsencePatterns(context.Background(), "s1")
	require.NoError(t, err)

	warning := st.to("s1")[0]
	assert.Equal(t, "Attendance Warning", warning.Title)
	assert.Contains(t, warning.Message, "5 times in the last 30 days")
	escalation := st.to("a1")[0]
	assert.Contains(t, escalation.Message, "Sam Lee")
	assert.Equal(t, "s1", escalation.Metadata["student_id"])
}

func TestCheckUnknownStudent(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CheckAbsencePatterns(context.Background(), "ghost")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "student not found", err.Error())
}

func TestCreateRequiresRecipient(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Notice{RecipientID: "ghost", Title: "t", Message: "m"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Create(ctx, Notice{RecipientID: "s1", Title: " ", Message: "m"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListAndMarkRead(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, Notice{RecipientID: "s1", Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	student := auth.Actor{UserID: "s1", Role: auth.RoleStudent}

	got, err := svc.List(ctx, student, false, 0)
	require.NoError(t, err)
	assert.Len(t, got, defaultListLimit)

	_, err = svc.MarkRead(ctx, auth.Actor{UserID: "l1", Role: auth.RoleLecturer}, st.items[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	read, err := svc.MarkRead(ctx, student, st.items[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.Equal(t, fixedNow, *read.ReadAt)

	unread, err := svc.List(ctx, student, true, 100)
	require.NoError(t, err)
	assert.Len(t, unread, 24)
}

func TestRequestCheckIsStaffOnly(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.RequestCheck(context.Background(), auth.Actor{UserID: "s1", Role: auth.RoleStudent}, "s1")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
