package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of gateway-issued claims the client inspects.
// The signature is never checked client-side; the gateway remains the verifier.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
