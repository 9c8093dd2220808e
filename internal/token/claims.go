package token

import "github.com/golang-jwt/jwt/v5"

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Identity is everything the gateway knows about a subject. It is rebuilt
// from a verified access token on every request; there is no server-side
// session store on the hot path.
type Identity struct {
	UserID string
	Email  string
	Role   string

	// TenantID scopes all backend queries. Empty means "resolve tenant
	// from the user record" downstream.
	TenantID string

	// NodeID optionally narrows visibility to one organizational unit
	// within the tenant.
	NodeID string

	// TokenVersion is a per-subject counter; bumping it server-side is the
	// only way to invalidate tokens before natural expiry.
	TokenVersion int
}

// Claims is the only supported JWT claims shape for this service.
// Role is canonical; ActiveRole is emitted and accepted purely for
// consumers still reading the legacy field name, and the two are always
// kept identical at the signing boundary.
type Claims struct {
	jwt.RegisteredClaims

	UserID       string `json:"userId"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	ActiveRole   string `json:"activeRole,omitempty"`
	TenantID     string `json:"tenantId,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`
	TokenVersion int    `json:"tokenVersion"`
	TokenType    Type   `json:"type,omitempty"`
}

// EffectiveRole prefers the legacy ActiveRole field when a foreign issuer
// populated only that one.
func (c Claims) EffectiveRole() string {
	if c.ActiveRole != "" {
		return c.ActiveRole
	}
	return c.Role
}

func (c Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		Role:         c.EffectiveRole(),
		TenantID:     c.TenantID,
		NodeID:       c.NodeID,
		TokenVersion: c.TokenVersion,
	}
}
