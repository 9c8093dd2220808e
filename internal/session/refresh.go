package session

import (
	"context"
	"errors"
	"time"

	"lms-edge/internal/identity"
	"lms-edge/internal/token"
)

// ErrRefreshFailed covers every refresh failure: expired, wrong type, bad
// signature, tokenVersion mismatch. Callers treat it as "logged out" and
// clear both cookies; there is no partial outcome.
var ErrRefreshFailed = errors.New("session: refresh failed")

// Refresher rotates token pairs. Policy is full rotation: every successful
// refresh issues a brand-new refresh token alongside the access token. The
// superseded refresh token stays cryptographically valid until expiry;
// hard invalidation across devices is tokenVersion's job (logout-all).
type Refresher struct {
	codec *token.Codec

	// store may be nil in storeless deployments; the version check is
	// then skipped and invalidation rests on expiry alone.
	store identity.Store

	timeout time.Duration
	now     func() time.Time
}

func NewRefresher(codec *token.Codec, store identity.Store, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Refresher{codec: codec, store: store, timeout: timeout, now: time.Now}
}

// Rotate verifies the refresh token at full trust (this is a trust-boundary
// operation, not a peek) and mints a new pair.
func (r *Refresher) Rotate(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := r.now()
	claims, err := r.codec.VerifyRefresh(refreshToken, now)
	if err != nil {
		return "", "", ErrRefreshFailed
	}
	id := claims.Identity()

	if r.store != nil {
		current, err := r.store.TokenVersion(ctx, id.UserID)
		if err != nil {
			return "", "", ErrRefreshFailed
		}
		if current != id.TokenVersion {
			// A logout-all happened since this token was issued.
			return "", "", ErrRefreshFailed
		}
	}

	access, err = r.codec.SignAccess(now, id)
	if err != nil {
		return "", "", ErrRefreshFailed
	}
	refresh, err = r.codec.SignRefresh(now, id)
	if err != nil {
		return "", "", ErrRefreshFailed
	}
	return access, refresh, nil
}
