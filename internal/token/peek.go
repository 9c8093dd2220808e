package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// PeekRole base64url-decodes the payload segment of a JWT without verifying
// the signature and returns the role claim (activeRole takes precedence).
//
// This exists for the path-gating middleware, which runs on every request
// including static assets and must stay cheap. It must never back a
// security decision beyond "is there a plausible role to route by": the
// API boundary still performs full signature verification via VerifyAccess
// before honoring anything privileged. The split is deliberate layering,
// not a shortcut.
func PeekRole(tokenString string) (string, bool) {
	claims, ok := peek(tokenString)
	if !ok {
		return "", false
	}
	role := claims.EffectiveRole()
	if role == "" {
		return "", false
	}
	return role, true
}

// PeekExpiry returns the exp claim (unix seconds) without verification.
// Used only to decide whether a transparent refresh is worth attempting.
func PeekExpiry(tokenString string) (int64, bool) {
	claims, ok := peek(tokenString)
	if !ok || claims.ExpiresAt == nil {
		return 0, false
	}
	return claims.ExpiresAt.Unix(), true
}

func peek(tokenString string) (Claims, bool) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Claims{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, false
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}
