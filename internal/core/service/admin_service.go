package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/librarium/library-system/internal/core/domain"
	"github.com/librarium/library-system/internal/core/ports"
)

// AdminService implements role administration. The last-admin invariant
// lives in the repository so the count-then-write is atomic against
// concurrent role changes.
type AdminService struct {
	users ports.UserRepository
	trail ports.AuditTrail
	log   zerolog.Logger
}

func NewAdminService(users ports.UserRepository, trail ports.AuditTrail, log zerolog.Logger) *AdminService {
	return &AdminService{users: users, trail: trail, log: log}
}

// UpdateUserRole changes the role of the user identified by email.
// Demoting the last enabled admin fails with domain.ErrLastAdmin and leaves
// the role unchanged.
func (s *AdminService) UpdateUserRole(ctx context.Context, actor, email, newRole string) (*domain.User, error) {
	role, err := domain.ParseRole(newRole)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateRole(ctx, email, role)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("actor", actor).
		Str("email", email).
		Str("role", string(role)).
		Msg("user role updated")
	s.audit(actor, domain.AuditRoleChanged, email+" -> "+string(role))
	return user, nil
}

// SetUserEnabled enables or disables an account. Tokens issued before a
// disable stay valid until natural expiry; there is no revocation list.
func (s *AdminService) SetUserEnabled(ctx context.Context, actor, email string, enabled bool) (*domain.User, error) {
	user, err := s.users.SetEnabled(ctx, email, enabled)
	if err != nil {
		return nil, err
	}

	action := domain.AuditUserDisabled
	if enabled {
		action = domain.AuditUserEnabled
	}
	s.audit(actor, action, email)
	return user, nil
}

func (s *AdminService) audit(actor, action, detail string) {
	if s.trail == nil {
		return
	}
	s.trail.Enqueue(domain.AuditEvent{
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}
