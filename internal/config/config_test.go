package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_RequiresJWTSecretEverywhere(t *testing.T) {
	for _, env := range []string{"local", "dev", "staging", "production"} {
		c := Config{
			App:     AppConfig{Env: env, Port: 3000},
			Backend: BackendConfig{BaseURL: "http://localhost:8000"},
		}
		if err := c.Validate(); err == nil {
			t.Fatalf("env %s: expected error for missing JWT_SECRET", env)
		}
	}
}

func TestValidate_RequiresBackendURL(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "local", Port: 3000},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing PYTHON_BACKEND_URL")
	}
}

func TestValidate_DefaultsTokenTTLs(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "local", Port: 3000},
		Backend: BackendConfig{BaseURL: "http://localhost:8000"},
		Auth:    AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %v", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh TTL, got %v", c.Auth.RefreshTokenTTL)
	}
}

func TestValidate_RejectsBypassInProduction(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "production", Port: 3000, DisableRoleMiddleware: true},
		Backend: BackendConfig{BaseURL: "https://backend"},
		Auth: AuthConfig{
			JWTSecret:   "secret",
			JWTIssuer:   "iss",
			JWTAudience: "aud",
		},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for role middleware bypass in production")
	}
}

func TestLoad_RejectsMalformedDurations(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "3000")
	t.Setenv("PYTHON_BACKEND_URL", "http://localhost:8000")
	t.Setenv("JWT_SECRET", "secret")

	for _, key := range []string{"JWT_ACCESS_TTL", "JWT_REFRESH_TTL", "BACKEND_REQUEST_TIMEOUT"} {
		t.Setenv(key, "15minutes")
		if _, err := Load(); err == nil {
			t.Fatalf("%s: expected error for malformed duration", key)
		}
		t.Setenv(key, "")
	}
}

func TestLoad_EmptyDurationsUseDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "3000")
	t.Setenv("PYTHON_BACKEND_URL", "http://localhost:8000")
	t.Setenv("JWT_SECRET", "secret")

	c, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m default, got %v", c.Auth.AccessTokenTTL)
	}
	if c.Backend.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s default timeout, got %v", c.Backend.RequestTimeout)
	}
}

func TestValidate_ProductionRequiresIssuerAudience(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "production", Port: 3000},
		Backend: BackendConfig{BaseURL: "https://backend"},
		Auth:    AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing issuer/audience in production")
	}
}
