// Package auth verifies the credentials accepted by the API: bearer JWTs
// issued to identities and bcrypt-hashed service tokens for automation.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and validates bearer tokens for identities.
type JWTService interface {
	// GenerateToken creates a signed access token for the identity.
	GenerateToken(ctx context.Context, identityID uuid.UUID) (string, error)

	// ValidateToken checks signature and time claims and returns the claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the validated contents of an access token.
type Claims struct {
	IdentityID uuid.UUID `json:"aid,omitempty"`
	Subject    string    `json:"sub,omitempty"`
	IssuedAt   time.Time `json:"iat,omitempty"`
	ExpiresAt  time.Time `json:"exp,omitempty"`
	ID         string    `json:"jti,omitempty"`
}
