// Package auth issues and validates the bearer tokens chat gateways present
// to the assistant.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "expense-assistant"

	KindGateway = "gateway"
)

// Claims identifies the caller of the gateway API.
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenGenerator creates and checks signed tokens.
type TokenGenerator interface {
	Generate(subject, kind string) (Token, error)
	ValidateToken(tokenString string) (*Claims, error)
}
