// Package auth resolves bearer tokens to actors. Token issuance (login,
// registration, OAuth) is owned by the identity service; this package only
// validates what that service minted.
package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"craftfolio/internal/types"
)

// Claims is the JWT payload the identity service mints for users.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HS256-signed bearer tokens. It implements
// core.Authenticator.
type JWTAuthenticator struct {
	secret types.SecretString
}

func NewJWTAuthenticator(secret types.SecretString) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret}
}

// ResolveToken parses and validates the token and returns the Actor it
// represents. Signature and expiry failures come back as distinct AppError
// codes so the HTTP layer can tell clients whether to re-login or fix the
// token.
func (a *JWTAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(a.secret.Unmask()), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "token has expired", err)
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token validation failed", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token carries unexpected claims", nil)
	}
	if claims.UserID == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token carries no subject", nil)
	}

	return &types.Actor{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}
