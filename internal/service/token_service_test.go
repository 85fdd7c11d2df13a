package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deposit-api/internal/models"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "deposit-api", Expiration: time.Hour})

	token, expiresAt, err := svc.Issue("user-1", models.RoleUser, "user@example.com")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Expiration: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := svc.Issue("user-1", models.RoleAdmin, "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenServiceRejectsWrongSecretAndIssuer(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "other", Issuer: "deposit-api"})
	token, _, err := issuer.Issue("user-1", models.RoleUser, "")
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "secret", Issuer: "deposit-api"}).ValidateToken(token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	foreign := NewTokenService(TokenConfig{Secret: "secret", Issuer: "someone-else"})
	token, _, err = foreign.Issue("user-1", models.RoleUser, "")
	require.NoError(t, err)
	_, err = NewTokenService(TokenConfig{Secret: "secret", Issuer: "deposit-api"}).ValidateToken(token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "secret"}).ValidateToken(token)
	require.Error(t, err)
}

func TestTokenServiceIssueRequiresSecret(t *testing.T) {
	_, _, err := NewTokenService(TokenConfig{}).Issue("user-1", models.RoleUser, "")
	require.Error(t, err)
}
