package ports

import (
	"context"

	"github.com/librarium/library-system/internal/core/domain"
)

// UserRepository defines the persistence interface for identities.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountEnabledByRole(ctx context.Context, role domain.Role) (int64, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// UpdateRole changes a user's role, enforcing the last-admin invariant:
	// demoting the final enabled admin returns domain.ErrLastAdmin with the
	// role unchanged. Implementations must make the admin count and the
	// write atomic with respect to concurrent role changes.
	UpdateRole(ctx context.Context, email string, role domain.Role) (*domain.User, error)

	SetEnabled(ctx context.Context, email string, enabled bool) (*domain.User, error)
}
