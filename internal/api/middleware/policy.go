package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/librarium/library-system/internal/api/metrics"
	"github.com/librarium/library-system/internal/core/domain"
)

// Rule maps (method, path pattern) onto an access requirement. A pattern is
// matched segment-wise: ":name" matches exactly one segment, a trailing "*"
// matches any remainder. Method "" matches every method.
type Rule struct {
	Method  string
	Pattern string
	Public  bool
	Roles   []domain.Role
}

// Decision is the single output of a policy evaluation.
type Decision int

const (
	// Allow admits the request.
	Allow Decision = iota
	// Unauthenticated means the rule requires an identity and none is bound.
	// Maps to 401.
	Unauthenticated
	// Forbidden means an identity is bound but lacks a required role.
	// Maps to 403.
	Forbidden
)

// DefaultRules is the ordered access policy, first match wins. Requests that
// match no rule require any authenticated identity. The table reproduces the
// route policy of the original deployment: reading the catalog and the
// authentication endpoints are public, catalog mutation needs LIBRARIAN or
// ADMIN, role administration needs ADMIN.
var DefaultRules = []Rule{
	{Method: http.MethodPost, Pattern: "/auth/register", Public: true},
	{Method: http.MethodPost, Pattern: "/auth/login", Public: true},
	{Method: http.MethodGet, Pattern: "/swagger/*", Public: true},
	{Method: http.MethodGet, Pattern: "/health", Public: true},
	{Method: http.MethodGet, Pattern: "/health/ready", Public: true},
	{Method: http.MethodGet, Pattern: "/metrics", Public: true},
	{Method: http.MethodGet, Pattern: "/books", Public: true},
	{Method: http.MethodGet, Pattern: "/books/:id", Public: true},
	{Method: http.MethodPost, Pattern: "/books", Roles: []domain.Role{domain.RoleLibrarian, domain.RoleAdmin}},
	{Method: http.MethodPut, Pattern: "/books/:id", Roles: []domain.Role{domain.RoleLibrarian, domain.RoleAdmin}},
	{Method: http.MethodDelete, Pattern: "/books/:id", Roles: []domain.Role{domain.RoleLibrarian, domain.RoleAdmin}},
	{Pattern: "/admin/*", Roles: []domain.Role{domain.RoleAdmin}},
}

// Evaluate runs the ordered rule table against one request. It is a pure
// function of (method, path, identity); anonymous requests pass identity
// with authenticated=false.
func Evaluate(rules []Rule, method, path string, id Identity, authenticated bool) Decision {
	for _, r := range rules {
		if !r.matches(method, path) {
			continue
		}
		if r.Public {
			return Allow
		}
		if !authenticated {
			return Unauthenticated
		}
		if len(r.Roles) == 0 || id.HasAnyRole(r.Roles...) {
			return Allow
		}
		return Forbidden
	}
	// No rule matched: any authenticated identity may proceed.
	if !authenticated {
		return Unauthenticated
	}
	return Allow
}

// IsPublic reports whether the route is public: a pure function of
// method+path, independent of any token on the request.
func IsPublic(rules []Rule, method, path string) bool {
	for _, r := range rules {
		if r.matches(method, path) {
			return r.Public
		}
	}
	return false
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	return matchPath(r.Pattern, path)
}

// matchPath compares a pattern and a concrete path segment by segment.
func matchPath(pattern, path string) bool {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	sp := strings.Split(strings.Trim(path, "/"), "/")

	for i, seg := range pp {
		if seg == "*" {
			return true
		}
		if i >= len(sp) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			if sp[i] == "" {
				return false
			}
			continue
		}
		if seg != sp[i] {
			return false
		}
	}
	return len(pp) == len(sp)
}

// Authorize enforces the rule table after the authentication gate has run.
// Unauthenticated and Forbidden map to distinct status codes (401 vs 403).
func Authorize(rules []Rule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, authenticated := IdentityFrom(c)
			decision := Evaluate(rules, c.Request().Method, c.Request().URL.Path, id, authenticated)

			switch decision {
			case Unauthenticated:
				metrics.AuthzDecisionsTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			case Forbidden:
				metrics.AuthzDecisionsTotal.WithLabelValues("forbidden").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}

			metrics.AuthzDecisionsTotal.WithLabelValues("allow").Inc()
			return next(c)
		}
	}
}
