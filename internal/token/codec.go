package token

import (
	"errors"
	"time"

	"lms-edge/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrNoSecret means the deployment did not configure a signing key.
	// There is deliberately no fallback secret; startup must fail instead.
	ErrNoSecret = errors.New("token: signing secret is required")

	// ErrInvalidToken covers every verification failure: signature,
	// issuer, audience, expiry, and token-type mismatch. Callers must not
	// learn which check failed.
	ErrInvalidToken = errors.New("token: invalid token")
)

// Codec is the single source of truth for claim shape and signature
// algorithm. Tokens are immutable once signed.
type Codec struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

/* ===================== ISSUE TOKENS ===================== */

// SignAccess mints a short-lived access token. Role and ActiveRole are
// always populated identically.
func (c *Codec) SignAccess(now time.Time, id Identity) (string, error) {
	return c.sign(now, TypeAccess, id, c.accessTTL)
}

// SignRefresh mints a refresh token: same claim shape plus the "refresh"
// type discriminator and the longer lifetime.
func (c *Codec) SignRefresh(now time.Time, id Identity) (string, error) {
	return c.sign(now, TypeRefresh, id, c.refreshTTL)
}

func (c *Codec) sign(now time.Time, typ Type, id Identity, ttl time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrNoSecret
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  audienceOrNil(c.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:       id.UserID,
		Email:        id.Email,
		Role:         id.Role,
		ActiveRole:   id.Role,
		TenantID:     id.TenantID,
		NodeID:       id.NodeID,
		TokenVersion: id.TokenVersion,
	}
	if typ == TypeRefresh {
		claims.TokenType = TypeRefresh
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

/* ===================== VERIFY TOKENS ===================== */

// VerifyAccess fully verifies an access token: signature, issuer, audience,
// expiry, and that the token is not a refresh token. This is the
// trust-boundary check; routing-only callers use Peek instead.
func (c *Codec) VerifyAccess(tokenString string, now time.Time) (Claims, error) {
	claims, err := c.verify(tokenString, now)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType == TypeRefresh {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh requires the "refresh" type discriminator; an access token
// presented here is rejected.
func (c *Codec) VerifyRefresh(tokenString string, now time.Time) (Claims, error) {
	claims, err := c.verify(tokenString, now)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != TypeRefresh {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second), // clock skew tolerance
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	validator := jwt.NewValidator(opts...)
	if err := validator.Validate(claims.RegisteredClaims); err != nil {
		return Claims{}, ErrInvalidToken
	}

	if claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
