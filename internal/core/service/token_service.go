package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/librarium/library-system/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// TokenClaims is the claim set carried by every session token.
type TokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed session tokens. The signing
// secret and TTL are fixed at construction and safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService fails only on a missing signing secret; that is a startup
// misconfiguration, never a per-request condition.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: signing secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Issue returns a signed token with subject, role claims, issued-at, and
// expires-at = now + TTL.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := TokenClaims{
		Roles: user.Roles(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature integrity first, then expiry, then claim shape.
// Failures map to the domain token errors; callers collapse them to a
// generic unauthenticated response.
func (s *TokenService) Verify(token string) (string, []string, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", nil, domain.ErrTokenSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", nil, domain.ErrTokenExpired
		default:
			return "", nil, domain.ErrTokenMalformed
		}
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", nil, domain.ErrTokenMalformed
	}
	return claims.Subject, claims.Roles, nil
}

// ExtractSubject decodes the subject without signature or expiry checks.
// Used only to resolve the identity before re-validating the token together
// with that identity's enabled state.
func (s *TokenService) ExtractSubject(token string) (string, bool) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// TTL reports the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
