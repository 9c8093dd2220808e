package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the gateway process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Files   FilesConfig
}

type AppConfig struct {
	Env  string
	Port int

	// DisableRoleMiddleware bypasses all role gating. Test environments only.
	// The middleware logs loudly on every bypassed request.
	DisableRoleMiddleware bool
}

type BackendConfig struct {
	// BaseURL of the Python backend all /api traffic is proxied to.
	BaseURL string

	// RequestTimeout bounds a single proxied round trip.
	RequestTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// RequireTestPassword gates the dev-only fixture login fallback.
	RequireTestPassword string
}

type FilesConfig struct {
	// StorageRoots are local directories tried in priority order before
	// falling back to the backend's own file endpoint.
	StorageRoots []string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.DisableRoleMiddleware = os.Getenv("E2E_DISABLE_ROLE_MIDDLEWARE") == "1"

	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PYTHON_BACKEND_URL")), "/")
	{
		d, err := mustDuration("BACKEND_REQUEST_TIMEOUT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Backend.RequestTimeout = d
	}

	// DB is optional: without it the gateway cannot serve logout-all or
	// store-backed permission resolution, but pure proxying still works.
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	// Redis is optional: enables the shared permission cache and the
	// login rate limiter.
	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	// A present-but-malformed value is still an error: silently running
	// with a default TTL after a typo would mask a deploy mistake.
	for _, dv := range []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_ACCESS_TTL", &c.Auth.AccessTokenTTL},
		{"JWT_REFRESH_TTL", &c.Auth.RefreshTokenTTL},
	} {
		d, err := mustDuration(dv.key)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		*dv.dst = d
	}
	c.Auth.RequireTestPassword = os.Getenv("REQUIRE_TEST_PASSWORD")

	if roots := strings.TrimSpace(os.Getenv("FILE_STORAGE_ROOTS")); roots != "" {
		for _, r := range strings.Split(roots, ":") {
			if r = strings.TrimSpace(r); r != "" {
				c.Files.StorageRoots = append(c.Files.StorageRoots, r)
			}
		}
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.DisableRoleMiddleware && c.IsProduction() {
		errs = append(errs, errors.New("E2E_DISABLE_ROLE_MIDDLEWARE must not be set in production"))
	}

	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("PYTHON_BACKEND_URL is required"))
	} else if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("PYTHON_BACKEND_URL must be an http(s) URL, got %q", c.Backend.BaseURL))
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = 30 * time.Second
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Local-friendly default; production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" {
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	// No fallback secret, ever. A deployment without JWT_SECRET must not start.
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.JWTIssuer == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		} else {
			c.Auth.JWTIssuer = "lms-edge"
		}
	}
	if c.Auth.JWTAudience == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		} else {
			c.Auth.JWTAudience = "lms"
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) HasDB() bool    { return c.DB.Host != "" }
func (c Config) HasRedis() bool { return c.Redis.Host != "" }

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 15m, got %q", key, v)
	}
	return d, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
