package identity

import (
	"testing"

	"lms-edge/internal/roles"
)

func TestFixtureProvider_DisabledWithoutPassword(t *testing.T) {
	if p := NewFixtureProvider(""); p != nil {
		t.Fatalf("expected nil provider without a test password")
	}
	// A nil provider must be safe to call.
	var p *FixtureProvider
	if _, ok := p.Authenticate("admin@example.com", "anything"); ok {
		t.Fatalf("nil provider must never authenticate")
	}
}

func TestFixtureProvider_Authenticate(t *testing.T) {
	p := NewFixtureProvider("test-pass")

	id, ok := p.Authenticate("admin@example.com", "test-pass")
	if !ok {
		t.Fatalf("expected fixture admin to authenticate")
	}
	if id.Role != roles.Admin || id.UserID == "" || id.TenantID == "" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	if _, ok := p.Authenticate("admin@example.com", "wrong"); ok {
		t.Fatalf("wrong password must be rejected")
	}
	if _, ok := p.Authenticate("nobody@example.com", "test-pass"); ok {
		t.Fatalf("unknown account must be rejected")
	}

	// Email lookup is case-insensitive; fixtures are for humans typing.
	if _, ok := p.Authenticate("  Admin@Example.com ", "test-pass"); !ok {
		t.Fatalf("expected normalized email to match")
	}
}
