package auth

import (
	"context"
	"time"
)

// TokenBlacklist is the storage interface for revoked token IDs.
type TokenBlacklist interface {
	// Add blacklists a jti until the token's original expiry, after which
	// the entry may be dropped automatically.
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted reports whether a jti has been revoked.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}
