package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Lecturer ")
	require.NoError(t, err)
	assert.Equal(t, RoleLecturer, r)

	_, err = ParseRole("dean")
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	admin := Actor{UserID: "a", Role: RoleAdmin}
	student := Actor{UserID: "s", Role: RoleStudent}

	assert.NoError(t, RequireRole(admin, RoleAdmin))
	assert.NoError(t, RequireRole(admin, RoleTutor, RoleAdmin))

	err := RequireRole(student, RoleTutor, RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, "requires role tutor or admin", err.Error())

	assert.True(t, apperr.Is(RequireRole(Actor{}, RoleAdmin), apperr.KindUnauthorized))
}

func TestRequireSelfOr(t *testing.T) {
	student := Actor{UserID: "s", Role: RoleStudent}

	assert.NoError(t, RequireSelfOr(student, "s", RoleAdmin))
	assert.True(t, apperr.Is(RequireSelfOr(student, "other", RoleAdmin), apperr.KindForbidden))
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, CheckPassword("not-a-hash", "x"))
}
