package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/models"
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestIssueAndParsePair(t *testing.T) {
	m := newTestTokenManager()
	actor := models.Actor{ID: "u1", Email: "budi@workshop.com", Role: models.RoleWorkshop, WorkshopID: "w1"}

	pair, err := m.IssuePair(actor)
	require.NoError(t, err)

	claims, err := m.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.Actor())
	assert.NotEmpty(t, claims.ID)

	refresh, err := m.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", refresh.UserID)
	assert.Empty(t, refresh.Role)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := newTestTokenManager()
	pair, err := m.IssuePair(models.Actor{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)

	_, err = m.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredToken(t *testing.T) {
	m := newTestTokenManager()
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }
	pair, err := m.IssuePair(models.Actor{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestWrongSecretRejected(t *testing.T) {
	pair, err := newTestTokenManager().IssuePair(models.Actor{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)

	other := NewTokenManager("other", "other", time.Minute, time.Minute)
	_, err = other.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Token abc")
	_, err = ExtractTokenFromRequest(r)
	assert.ErrorIs(t, err, ErrTokenFormat)

	r.Header.Set("Authorization", "bearer abc.def")
	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)
}
