package domain

import (
	"context"
	"time"
)

// RefreshToken is a stored session that can mint new access tokens
type RefreshToken struct {
	ID        string     `bson:"_id" json:"id"` // ULID
	UserID    string     `bson:"user_id" json:"user_id"`
	TokenHash string     `bson:"token_hash" json:"-"` // SHA256 hash, never expose
	ExpiresAt time.Time  `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UserAgent string     `bson:"user_agent" json:"user_agent"`
	IPAddress string     `bson:"ip_address" json:"ip_address"`
	Revoked   bool       `bson:"revoked" json:"revoked"`
	RevokedAt *time.Time `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
}

// ValidAt reports whether the token is unrevoked and unexpired at now
func (r *RefreshToken) ValidAt(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

// RefreshTokenRepository defines the interface for refresh token storage
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error

	// FindByHash returns ErrNotFound when no unrevoked token matches
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)

	RevokeByHash(ctx context.Context, hash string) error

	// RevokeAllByUserID revokes every session of a user (deactivation)
	RevokeAllByUserID(ctx context.Context, userID string) error
}
