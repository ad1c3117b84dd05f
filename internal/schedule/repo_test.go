package schedule

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
)

var slotCols = []string{"id", "lecturer_id", "course_id", "code", "name", "classroom", "day_of_week",
	"start_minute", "end_minute", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestCreateStoresMinutes(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_slots")).
		WithArgs(sqlmock.AnyArg(), "T", "c1", "B12", "Monday", 540, 600).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1")).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow("s1", "T", "c1", "CS101", "Intro", "B12", "Monday", 540, 600, now, now))

	got, err := repo.Create(context.Background(), Slot{
		LecturerID: "T", CourseID: "c1", Classroom: "B12", Day: Monday, Start: 540, End: 600,
	})

	require.NoError(t, err)
	assert.Equal(t, "CS101", got.CourseCode)
	assert.Equal(t, "09:00", got.Start.String())
	assert.Equal(t, "10:00", got.End.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSortsTimetable(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.lecturer_id = $1 AND s.day_of_week = $2")).
		WithArgs("T", "Monday").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow("b", "T", "c1", "CS101", "Intro", "", "Monday", 600, 660, now, now).
			AddRow("a", "T", "c1", "CS101", "Intro", "", "Monday", 540, 600, now, now))

	got, err := repo.List(context.Background(), Filter{LecturerID: "T", Day: Monday})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}

func TestDeleteWithAttendanceIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_slots")).
		WithArgs("s1").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Delete(context.Background(), "s1")

	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "class slot has attendance records", err.Error())
}
