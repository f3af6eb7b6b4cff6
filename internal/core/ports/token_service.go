package ports

import "github.com/librarium/library-system/internal/core/domain"

// TokenService issues and verifies stateless signed session tokens.
type TokenService interface {
	// Issue returns a signed token carrying the user's identity and role
	// claims, valid for the configured TTL.
	Issue(user *domain.User) (string, error)

	// Verify checks signature, expiry, and claim well-formedness, in that
	// order. It returns the subject and raw role claims on success, or one
	// of domain.ErrTokenMalformed, domain.ErrTokenSignatureInvalid,
	// domain.ErrTokenExpired.
	Verify(token string) (subject string, roles []string, err error)

	// ExtractSubject decodes the subject without verifying the token. It is
	// only for looking up the identity before a full Verify; unverified
	// claims must never be trusted for authorization.
	ExtractSubject(token string) (string, bool)
}
