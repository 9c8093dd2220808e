package identity

import (
	"strings"

	"lms-edge/internal/roles"
	"lms-edge/internal/token"
)

// FixtureProvider is the dev-only test identity table used for login when
// the backend is unreachable. It is a separate, explicitly wired
// collaborator: production wiring never constructs one, and it refuses to
// exist without a shared test password.
type FixtureProvider struct {
	password string
	users    map[string]token.Identity
}

// NewFixtureProvider returns nil when requireTestPassword is empty: no
// password, no fallback.
func NewFixtureProvider(requireTestPassword string) *FixtureProvider {
	if requireTestPassword == "" {
		return nil
	}
	return &FixtureProvider{
		password: requireTestPassword,
		users: map[string]token.Identity{
			"admin@example.com": {
				UserID:   "fixture-admin",
				Email:    "admin@example.com",
				Role:     roles.Admin,
				TenantID: "fixture-tenant",
			},
			"superinstructor@example.com": {
				UserID:   "fixture-super-instructor",
				Email:    "superinstructor@example.com",
				Role:     roles.SuperInstructor,
				TenantID: "fixture-tenant",
			},
			"instructor@example.com": {
				UserID:   "fixture-instructor",
				Email:    "instructor@example.com",
				Role:     roles.Instructor,
				TenantID: "fixture-tenant",
				NodeID:   "fixture-node",
			},
			"learner@example.com": {
				UserID:   "fixture-learner",
				Email:    "learner@example.com",
				Role:     roles.Learner,
				TenantID: "fixture-tenant",
				NodeID:   "fixture-node",
			},
		},
	}
}

// Authenticate matches a known fixture account. The password is the shared
// REQUIRE_TEST_PASSWORD value, never a per-account credential.
func (p *FixtureProvider) Authenticate(email, password string) (token.Identity, bool) {
	if p == nil || password != p.password {
		return token.Identity{}, false
	}
	id, ok := p.users[strings.ToLower(strings.TrimSpace(email))]
	return id, ok
}
