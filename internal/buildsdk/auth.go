package buildsdk

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("sdk: access token is not a jwt")

// TokenExpiry reads the exp claim without verifying the signature.
// The backend verifies tokens; this only lets us fail before a long upload.
// A token without exp returns the zero time.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, ErrNotJWT
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// TokenExpired reports whether a JWT access token is past its exp claim at now.
// Opaque (non-JWT) tokens return ErrNotJWT.
func TokenExpired(token string, now time.Time) (bool, error) {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false, err
	}
	if exp.IsZero() {
		return false, nil
	}
	return !now.Before(exp), nil
}
