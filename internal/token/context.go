package token

import (
	"context"
	"errors"
)

type ctxKey int

const ctxIdentity ctxKey = iota

var ErrNoIdentity = errors.New("token: identity not in context")

// WithIdentity stores the verified caller identity on the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFrom returns the verified identity placed by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.UserID != "" {
		return id, nil
	}
	return Identity{}, ErrNoIdentity
}
