package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	authdb "mekaniku/internal/auth/db"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
)

func setupService(t *testing.T) (*auth.AuthService, *dbtest.Fixtures) {
	t.Helper()
	bunDB := dbtest.New(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	tokens := auth.NewTokenManager("access", "refresh", 15*time.Minute, time.Hour)
	svc := auth.NewAuthService(&authdb.DB{Bun: bunDB}, tokens, auth.NewRedisRevocationStore(client), bcrypt.MinCost, logger.Discard())
	return svc, dbtest.NewFixtures(t, bunDB)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Name: "Andi", Email: "Andi@Customer.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, resp.User.Role)
	assert.Equal(t, "andi@customer.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Register(ctx, models.RegisterRequest{Name: "Andi", Email: "andi@customer.com", Password: "password123"})
	assert.True(t, apperr.IsConflict(err))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "andi@customer.com", Password: "wrong-password"})
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@customer.com", Password: "password123"})
	assert.True(t, apperr.IsUnauthorized(err))

	login, err := svc.Login(ctx, models.LoginRequest{Email: "andi@customer.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
	assert.Empty(t, login.WorkshopID)
}

func TestLoginResolvesWorkshopForStaff(t *testing.T) {
	svc, fx := setupService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Name: "Budi", Email: "budi@workshop.com", Password: "password123", Role: models.RoleWorkshop})
	require.NoError(t, err)
	workshop := fx.Workshop(resp.User.ID)

	login, err := svc.Login(ctx, models.LoginRequest{Email: "budi@workshop.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, workshop.ID, login.WorkshopID)

	claims, err := svc.Tokens.ParseAccess(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, workshop.ID, claims.WorkshopID)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Name: "Andi", Email: "andi@customer.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = svc.Refresh(ctx, "garbage")
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Name: "Andi", Email: "andi@customer.com", Password: "password123"})
	require.NoError(t, err)

	a := &auth.Authenticator{Tokens: svc.Tokens, Revocations: svc.Revocations, Logger: logger.Discard()}
	_, err = a.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.AccessToken, resp.RefreshToken))

	_, err = a.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.True(t, apperr.IsUnauthorized(err))
}
