package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Peek reads a credential's claims without checking its signature. The
// client uses it for display only; the server remains the authority on
// whether a credential is valid. Opaque (non-JWT) credentials report false.
func Peek(tokenString string) (*Claims, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExpiresAt returns when a credential expires, if it says.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims, ok := Peek(tokenString)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
