package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/librarium/library-system/internal/core/domain"
)

// identityKey is the echo context key under which the request identity is
// bound. Requests without a verified token carry no value, which downstream
// code reads as anonymous.
const identityKey = "auth.identity"

// Identity is the request-scoped binding of a resolved user and its granted
// roles. It is set at most once per request by the authentication gate and
// never mutated afterwards.
type Identity struct {
	Username string
	Roles    []domain.Role
}

// HasAnyRole reports whether the identity holds at least one of the given
// roles.
func (id Identity) HasAnyRole(roles ...domain.Role) bool {
	for _, want := range roles {
		for _, have := range id.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// BindIdentity attaches the identity to the request context. It is
// single-assignment: a second call within the same request is a no-op and
// returns false.
func BindIdentity(c echo.Context, id Identity) bool {
	if _, bound := IdentityFrom(c); bound {
		return false
	}
	c.Set(identityKey, id)
	return true
}

// IdentityFrom returns the bound identity, or ok=false when the request is
// anonymous.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}
