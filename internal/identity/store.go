package identity

import (
	"context"
	"errors"

	"lms-edge/internal/token"
)

var ErrNotFound = errors.New("identity: user not found")

// Store is the persistence collaborator for subjects. The gateway consults
// it only off the hot path: at login, refresh, and logout-all. Per-request
// middleware never touches it.
type Store interface {
	FindByEmail(ctx context.Context, email string) (token.Identity, error)

	// TokenVersion returns the subject's current counter. Tokens carrying
	// an older value are invalid regardless of signature and expiry.
	TokenVersion(ctx context.Context, userID string) (int, error)

	// BumpTokenVersion increments the counter, invalidating every token
	// issued before the bump. This is the only revocation mechanism for
	// otherwise-stateless tokens. Returns the new value.
	BumpTokenVersion(ctx context.Context, userID string) (int, error)
}
