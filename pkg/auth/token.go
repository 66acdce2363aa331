package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned when the token is not a JWT and cannot be inspected.
var ErrOpaqueToken = errors.New("token is opaque")

// InspectToken decodes the claims of a JWT without verifying its signature.
func InspectToken(tokenString string) (*TokenClaims, error) {
	trimmed := strings.TrimSpace(tokenString)
	if strings.Count(trimmed, ".") != 2 {
		return nil, ErrOpaqueToken
	}

	claims := &TokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(trimmed, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenExpired reports whether the token carries an exp claim that is before now.
// Opaque or unparseable tokens are never considered expired; the gateway decides.
func TokenExpired(tokenString string, now time.Time) bool {
	claims, err := InspectToken(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
