package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of a JWT credential without verifying its signature.
// Opaque credentials report ok=false. The backend remains the authority on validity.
func ExpiresAt(credential string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the credential carries an exp claim that is already in the past.
func Expired(credential string, now time.Time) bool {
	exp, ok := ExpiresAt(credential)
	return ok && !now.Before(exp)
}
