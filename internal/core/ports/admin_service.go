package ports

import (
	"context"

	"github.com/librarium/library-system/internal/core/domain"
)

// AdminService implements role administration.
type AdminService interface {
	// UpdateUserRole changes the role of the user identified by email.
	// Demoting the last enabled admin fails with domain.ErrLastAdmin.
	UpdateUserRole(ctx context.Context, actor, email, newRole string) (*domain.User, error)

	// SetUserEnabled enables or disables an account. Disabling does not
	// revoke already-issued tokens; they stay valid until natural expiry.
	SetUserEnabled(ctx context.Context, actor, email string, enabled bool) (*domain.User, error)
}
