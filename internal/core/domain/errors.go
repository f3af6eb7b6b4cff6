package domain

import "errors"

// Identity and credential errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username is already taken")
	ErrEmailExists        = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserDisabled       = errors.New("account is disabled")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrForbidden          = errors.New("access forbidden")
)

// ErrLastAdmin rejects a role change that would leave the system without a
// single enabled admin.
var ErrLastAdmin = errors.New("cannot remove the last admin")

// Token verification errors. The API boundary collapses all of these to a
// generic unauthenticated response; the distinction exists for logs and
// metrics only.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// Catalog errors.
var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book with this ISBN already exists")
)
