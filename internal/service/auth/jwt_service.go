// Package auth verifies bearer tokens for the API surface. Token issuance
// lives in the surrounding application, which shares the HMAC secret; this
// service only needs to validate what that application minted.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines the token-verification operations the API depends on.
type JWTService interface {
	// ValidateToken validates the provided access token string and extracts
	// the claims. Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the verified contents of an access token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
