package ports

import (
	"context"

	"github.com/librarium/library-system/internal/core/domain"
)

// RegisterInput carries a registration request into the auth service.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Role     string
}

// AuthService implements registration and login.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (token string, user *domain.User, err error)
	Login(ctx context.Context, username, password string) (token string, user *domain.User, err error)
}
