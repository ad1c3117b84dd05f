package notify

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestInsertEncodesMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(sqlmock.AnyArg(), "u1", "t", "m", `{"absence_count":3}`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	n, err := repo.Insert(context.Background(), Notification{UserID: "u1", Title: "t", Message: "m", Metadata: map[string]any{"absence_count": 3}})

	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDecodesMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE id = $1")).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "message", "metadata", "is_read", "read_at", "created_at"}).
			AddRow("n1", "u1", "t", "m", []byte(`{"student_id":"s1"}`), false, nil, now))

	n, err := repo.Get(context.Background(), "n1")

	require.NoError(t, err)
	assert.Equal(t, "s1", n.Metadata["student_id"])
	assert.Nil(t, n.ReadAt)
}

func TestCountAbsences(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("status = 'absent' AND recorded_at >= $2")).
		WithArgs("s1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountAbsences(context.Background(), "s1", since)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestHasNotice(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("metadata->>'type' = $2 AND metadata->>'student_id' = $3 AND created_at >= $4")).
		WithArgs("a1", KindAbsenceEscalation, "s1", since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasNotice(context.Background(), "a1", KindAbsenceEscalation, "s1", since)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
