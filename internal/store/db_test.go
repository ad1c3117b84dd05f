package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRunsEmbeddedSchema(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	db := &DB{Client: conn}
	require.NoError(t, db.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, schema, "UNIQUE (slot_id, student_id)")
}

func TestMigrateWrapsFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	db := &DB{Client: conn}
	err = db.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestConnectClosesPoolWhenPingFails(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	db, err := connect(conn)

	require.Error(t, err)
	assert.Nil(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectKeepsHealthyPool(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectPing()

	db, err := connect(conn)

	require.NoError(t, err)
	assert.Same(t, conn, db.Client)
}
