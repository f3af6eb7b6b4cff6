package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/librarium/library-system/internal/core/domain"
	"github.com/librarium/library-system/internal/core/ports"
)

// LoginThrottle abstracts the failed-attempt limiter (Redis).
type LoginThrottle interface {
	TooManyFailures(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// dummyHash absorbs a bcrypt comparison when the username does not resolve,
// so unknown-user and wrong-password take comparable time and both surface
// as ErrInvalidCredentials.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-parity"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// AuthService implements registration and login.
type AuthService struct {
	users    ports.UserRepository
	tokens   ports.TokenService
	throttle LoginThrottle
	trail    ports.AuditTrail
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenService,
	throttle LoginThrottle,
	trail ports.AuditTrail,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{users: users, tokens: tokens, throttle: throttle, trail: trail, log: log}
}

// Register creates an identity and immediately issues a session token.
// Duplicate username or email fail with Conflict-class errors.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return "", nil, err
	}

	if taken, err := s.users.ExistsByUsername(ctx, in.Username); err != nil {
		return "", nil, err
	} else if taken {
		return "", nil, domain.ErrUserExists
	}
	if taken, err := s.users.ExistsByEmail(ctx, in.Email); err != nil {
		return "", nil, err
	} else if taken {
		return "", nil, domain.ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}

	s.audit(user.Username, domain.AuditUserRegistered, string(user.Role))
	return token, user, nil
}

// Login authenticates a username/password pair and returns a fresh token.
// All credential failures collapse to ErrInvalidCredentials; only the audit
// trail records which check failed.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		blocked, err := s.throttle.TooManyFailures(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("login throttle check failed, proceeding")
		} else if blocked {
			s.audit(username, domain.AuditLoginFailed, "throttled")
			return "", nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.recordFailure(ctx, username, "unknown user")
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, username, "wrong password")
		return "", nil, domain.ErrInvalidCredentials
	}

	if !user.Enabled {
		s.audit(username, domain.AuditLoginFailed, "account disabled")
		return "", nil, domain.ErrUserDisabled
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login throttle")
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}

	s.audit(user.Username, domain.AuditLoginSucceeded, "")
	return token, user, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username, reason string) {
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
		}
	}
	s.audit(username, domain.AuditLoginFailed, reason)
}

func (s *AuthService) audit(actor, action, detail string) {
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
