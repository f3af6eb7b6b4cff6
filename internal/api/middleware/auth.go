package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/librarium/library-system/internal/api/metrics"
	"github.com/librarium/library-system/internal/core/domain"
	"github.com/librarium/library-system/internal/core/ports"
)

// Authenticate is the per-request authentication gate. It establishes the
// request identity and nothing else; rejecting the request is the
// authorization stage's job.
//
// Behavior, in order:
//  1. Public routes skip token handling entirely.
//  2. A missing or non-Bearer Authorization header passes through as
//     anonymous. Protected routes then fail with a clean 401 at the policy
//     stage, while public-but-token-friendly routes keep working.
//  3. A present bearer token is decoded (unverified) to find the subject,
//     the identity is resolved and must be enabled, then the token is fully
//     verified. Only the verified role claims are bound into the context.
//     Any failure falls back to anonymous; the distinct reason goes to logs
//     and metrics only.
func Authenticate(tokens ports.TokenService, users ports.UserRepository, rules []Rule, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsPublic(rules, c.Request().Method, c.Request().URL.Path) {
				return next(c)
			}
			if _, bound := IdentityFrom(c); bound {
				return next(c)
			}

			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return next(c)
			}

			subject, ok := tokens.ExtractSubject(raw)
			if !ok {
				reject(c, log, "malformed", nil)
				return next(c)
			}

			user, err := users.FindByUsername(c.Request().Context(), subject)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					reject(c, log, "subject_unknown", nil)
					return next(c)
				}
				return err
			}
			if !user.Enabled {
				reject(c, log, "subject_disabled", nil)
				return next(c)
			}

			verifiedSubject, roles, err := tokens.Verify(raw)
			if err != nil {
				reject(c, log, verifyReason(err), err)
				return next(c)
			}
			if verifiedSubject != user.Username {
				reject(c, log, "subject_mismatch", nil)
				return next(c)
			}

			BindIdentity(c, Identity{
				Username: user.Username,
				Roles:    domain.NormalizeRoles(roles),
			})
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}

func reject(c echo.Context, log zerolog.Logger, reason string, err error) {
	metrics.TokenVerifyFailuresTotal.WithLabelValues(reason).Inc()
	log.Debug().
		Err(err).
		Str("reason", reason).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("bearer token rejected, proceeding as anonymous")
}
