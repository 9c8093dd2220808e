package audit

import "time"

// Event is an immutable, append-only audit record for auth activity at
// the edge.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and IP capture are best-effort; auth flows never block on audit.
type Event struct {
	ID string `json:"id" db:"id"`

	// TenantID scopes the record. Empty for events with no resolved
	// subject (a failed login, for example).
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	Type EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP; prefer X-Forwarded-For
	// processing at the edge before storing.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLogin         EventType = "login"
	EventTypeFixtureLogin  EventType = "fixture_login"
	EventTypeLogout        EventType = "logout"
	EventTypeLogoutAll     EventType = "logout_all"
	EventTypeRefreshFailed EventType = "refresh_failed"
)
