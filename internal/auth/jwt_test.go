package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer(now time.Time) Issuer {
	return Issuer{
		Name:       "attendtrack-test",
		Key:        "secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        func() time.Time { return now },
	}
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	iss := testIssuer(now)

	pair, err := iss.Issue("user-1", RoleLecturer)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), pair.AccessExp)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := iss.Parse(pair.AccessToken, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, RoleLecturer, claims.Role)
	assert.NotEmpty(t, claims.ID)

	_, err = iss.Parse(pair.AccessToken, TokenRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	refresh, err := iss.Parse(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, refresh.TokenType)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	pair, err := testIssuer(now).Issue("user-1", RoleStudent)
	require.NoError(t, err)

	other := testIssuer(now)
	other.Key = "different"
	_, err = other.Parse(pair.AccessToken, TokenAccess)
	assert.Error(t, err)

	other = testIssuer(now)
	other.Name = "someone-else"
	_, err = other.Parse(pair.AccessToken, TokenAccess)
	assert.Error(t, err)

	_, err = testIssuer(now.Add(time.Hour)).Parse(pair.AccessToken, TokenAccess)
	assert.Error(t, err, "expired access token")
}
