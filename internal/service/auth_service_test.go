package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type authFixture struct {
	auth    *AuthService
	tokens  *TokenService
	users   *fakeUserRepo
	refresh *fakeRefreshTokenRepo
	admin   *domain.User
}

func setupAuthService(t *testing.T, managementKey string) *authFixture {
	t.Helper()
	users := newFakeUserRepo()
	refresh := newFakeRefreshTokenRepo()
	students := newFakeStudentRepo(&domain.Student{ID: "ALU-0001", Name: "Ana", DueDay: 30})

	tokens := NewTokenService(config.JWTConfig{
		Secret:             testSecret,
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}, refresh, users)
	auth := NewAuthService(users, students, tokens, managementKey)

	admin, created, err := auth.SeedAdmin(context.Background(), "Admin@Cohab.cl", "supersecret", "Admin")
	require.NoError(t, err)
	require.True(t, created)

	return &authFixture{auth: auth, tokens: tokens, users: users, refresh: refresh, admin: admin}
}

func TestAuthService_Login(t *testing.T) {
	f := setupAuthService(t, "")
	ctx := context.Background()

	user, err := f.auth.Login(ctx, " ADMIN@cohab.cl ", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "admin@cohab.cl", user.Email)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	stored, _ := f.users.GetByID(ctx, user.ID)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = f.auth.Login(ctx, "admin@cohab.cl", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody@cohab.cl", "supersecret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_SeedAdminIsIdempotent(t *testing.T) {
	f := setupAuthService(t, "")

	existing, created, err := f.auth.SeedAdmin(context.Background(), "other@cohab.cl", "anotherpass", "Other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, f.admin.ID, existing.ID)
}

func TestAuthService_CreateUser(t *testing.T) {
	f := setupAuthService(t, "")
	ctx := context.Background()

	student, err := f.auth.CreateUser(ctx, CreateUserInput{
		Email: "ana@cohab.cl", Password: "password1", Name: "Ana", Role: domain.RoleStudent, StudentID: "ALU-0001",
	})
	require.NoError(t, err)
	assert.True(t, student.Active)
	assert.Equal(t, "ALU-0001", student.StudentID)
	assert.NotEqual(t, "password1", student.PasswordHash)

	_, err = f.auth.CreateUser(ctx, CreateUserInput{Email: "ana@cohab.cl", Password: "password1", Name: "Ana", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.auth.CreateUser(ctx, CreateUserInput{Email: "b@cohab.cl", Password: "password1", Name: "B", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.auth.CreateUser(ctx, CreateUserInput{Email: "c@cohab.cl", Password: "password1", Name: "C", Role: domain.RoleStudent, StudentID: "ALU-9999"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.auth.CreateUser(ctx, CreateUserInput{Email: "d@cohab.cl", Password: "password1", Name: "D", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_DeactivateUser(t *testing.T) {
	f := setupAuthService(t, "")
	ctx := context.Background()

	other, err := f.auth.CreateUser(ctx, CreateUserInput{Email: "staff@cohab.cl", Password: "password1", Name: "Staff", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = f.tokens.GenerateTokenPair(ctx, other, "test", "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, f.refresh.active(other.ID))

	assert.ErrorIs(t, f.auth.DeactivateUser(ctx, f.admin.ID, f.admin.ID), domain.ErrSelfDeactivation)

	require.NoError(t, f.auth.DeactivateUser(ctx, f.admin.ID, other.ID))
	assert.Equal(t, 0, f.refresh.active(other.ID))

	_, err = f.auth.Login(ctx, "staff@cohab.cl", "password1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.auth.Me(ctx, other.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	assert.ErrorIs(t, f.auth.DeactivateUser(ctx, f.admin.ID, "missing"), domain.ErrNotFound)
}

func TestAuthService_ResetPassword(t *testing.T) {
	f := setupAuthService(t, "")
	ctx := context.Background()

	_, err := f.auth.ResetPassword(ctx, "admin@cohab.cl", "short")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.auth.ResetPassword(ctx, "admin@cohab.cl", "brandnewpass")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "admin@cohab.cl", "supersecret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "admin@cohab.cl", "brandnewpass")
	assert.NoError(t, err)
}

func TestAuthService_ManagementKey(t *testing.T) {
	open := setupAuthService(t, "")
	assert.False(t, open.auth.ManagementKeyRequired())
	assert.True(t, open.auth.VerifyManagementKey("anything"))

	gated := setupAuthService(t, "s3cret")
	assert.True(t, gated.auth.ManagementKeyRequired())
	assert.True(t, gated.auth.VerifyManagementKey("s3cret"))
	assert.False(t, gated.auth.VerifyManagementKey("S3CRET"))
	assert.False(t, gated.auth.VerifyManagementKey(""))
}

func TestTokenService_AccessTokenClaims(t *testing.T) {
	f := setupAuthService(t, "")

	pair, err := f.tokens.GenerateTokenPair(context.Background(), f.admin, "test", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims := &domain.CohabClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestTokenService_RefreshRotates(t *testing.T) {
	f := setupAuthService(t, "")
	ctx := context.Background()

	pair, err := f.tokens.GenerateTokenPair(ctx, f.admin, "test", "127.0.0.1")
	require.NoError(t, err)

	rotated, err := f.tokens.RefreshAccessToken(ctx, pair.RefreshToken, "test", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = f.tokens.RefreshAccessToken(ctx, pair.RefreshToken, "test", "127.0.0.1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "a refresh token is single-use")

	require.NoError(t, f.tokens.RevokeRefreshToken(ctx, rotated.RefreshToken))
	_, err = f.tokens.RefreshAccessToken(ctx, rotated.RefreshToken, "test", "127.0.0.1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
