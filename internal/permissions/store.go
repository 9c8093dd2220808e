package permissions

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized is the 401-equivalent from the permission source.
	// The service reacts by dropping any cached entry for the subject so
	// stale grants cannot be replayed.
	ErrUnauthorized = errors.New("permissions: unauthorized")
)

// Store resolves the role -> permission mapping from persistence.
// Permission identifiers use the "<resource>:<action>" form.
type Store interface {
	PermissionsForRole(ctx context.Context, role string) ([]string, error)
}
