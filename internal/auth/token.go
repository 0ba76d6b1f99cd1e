package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mrlokans/bookworms/internal/entities"
)

// SigningSecretSize is the length of the per-process HMAC key in bytes.
const SigningSecretSize = 32

// DefaultTokenTTL is used when a TokenService is built with a zero TTL.
const DefaultTokenTTL = 15 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrEmptySecret  = errors.New("signing secret is empty")
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	Username string
	Role     entities.UserRole
}

// Claims is the token payload.
type Claims struct {
	Roles []entities.UserRole `json:"roles"`
	jwt.RegisteredClaims
}

// Identity returns the bearer identity carried by the claims.
func (c *Claims) Identity() Identity {
	id := Identity{Username: c.Subject}
	if len(c.Roles) > 0 {
		id.Role = c.Roles[0]
	}
	return id
}

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role entities.UserRole) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GenerateSigningSecret returns a random key for a TokenService. It is called
// once at process start; every token signed before a restart stops verifying.
func GenerateSigningSecret() ([]byte, error) {
	secret := make([]byte, SigningSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}
	return secret, nil
}

// TokenService mints and verifies HS256 bearer tokens. It holds its signing
// secret for its whole lifetime and is safe for concurrent use.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service signing with secret.
func NewTokenService(secret []byte, issuer string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	// Copy secret to avoid external mutation
	key := make([]byte, len(secret))
	copy(key, secret)

	s := &TokenService{
		secret: key,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// GenerateToken issues a token for id, valid until the returned expiry.
func (s *TokenService) GenerateToken(id Identity) (string, time.Time, error) {
	if id.Username == "" {
		return "", time.Time{}, fmt.Errorf("generate token: %w", ErrUsernameRequired)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Roles: []entities.UserRole{id.Role},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyToken checks the signature and expiry of token and returns its claims.
// Any failure is reported as ErrInvalidToken or ErrTokenExpired.
func (s *TokenService) VerifyToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
