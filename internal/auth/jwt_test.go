package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftfolio/internal/types"
)

const testSecret = "test-jwt-secret-0123456789abcdef"

func mintToken(t *testing.T, secret string, userID, email string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolveToken_Valid(t *testing.T) {
	a := NewJWTAuthenticator(types.SecretString(testSecret))

	token := mintToken(t, testSecret, "user_1", "ada@example.com", time.Hour)

	actor, err := a.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", actor.UserID)
	assert.Equal(t, "ada@example.com", actor.Email)
}

func TestResolveToken_Expired(t *testing.T) {
	a := NewJWTAuthenticator(types.SecretString(testSecret))

	token := mintToken(t, testSecret, "user_1", "ada@example.com", -time.Minute)

	_, err := a.ResolveToken(context.Background(), token)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenExpired, appErr.Code)
}

func TestResolveToken_WrongSecret(t *testing.T) {
	a := NewJWTAuthenticator(types.SecretString(testSecret))

	token := mintToken(t, "a-completely-different-secret-key", "user_1", "ada@example.com", time.Hour)

	_, err := a.ResolveToken(context.Background(), token)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}

func TestResolveToken_Garbage(t *testing.T) {
	a := NewJWTAuthenticator(types.SecretString(testSecret))

	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		_, err := a.ResolveToken(context.Background(), token)
		require.Error(t, err)

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
	}
}

func TestResolveToken_MissingSubject(t *testing.T) {
	a := NewJWTAuthenticator(types.SecretString(testSecret))

	token := mintToken(t, testSecret, "", "ada@example.com", time.Hour)

	_, err := a.ResolveToken(context.Background(), token)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}

func TestResolveToken_RejectsUnsignedAlgorithm(t *testing.T) {
	a := NewJWTAuthenticator(types.SecretString(testSecret))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "user_1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.ResolveToken(context.Background(), token)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}
