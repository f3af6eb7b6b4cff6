package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/librarium/library-system/internal/core/domain"
	"github.com/librarium/library-system/internal/core/service"
)

// stubUserRepo implements the lookups the gate needs; the remaining
// ports.UserRepository methods are unused here.
type stubUserRepo struct {
	users map[string]*domain.User
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := r.users[username]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (r *stubUserRepo) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (r *stubUserRepo) ExistsByEmail(context.Context, string) (bool, error)    { return false, nil }
func (r *stubUserRepo) CountEnabledByRole(context.Context, domain.Role) (int64, error) {
	return 0, nil
}
func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	return u, nil
}
func (r *stubUserRepo) UpdateRole(context.Context, string, domain.Role) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (r *stubUserRepo) SetEnabled(context.Context, string, bool) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func newGate(t *testing.T, users map[string]*domain.User) (echo.MiddlewareFunc, *service.TokenService) {
	t.Helper()
	tokens, err := service.NewTokenService("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return Authenticate(tokens, &stubUserRepo{users: users}, DefaultRules, zerolog.Nop()), tokens
}

func gateRequest(t *testing.T, mw echo.MiddlewareFunc, method, path, authHeader string) (Identity, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var id Identity
	var bound bool
	handler := mw(func(c echo.Context) error {
		id, bound = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return id, bound
}

func enabledUser(username string, role domain.Role) *domain.User {
	return &domain.User{Username: username, Email: username + "@example.com", Role: role, Enabled: true}
}

func TestAuthenticate_PublicRouteSkipsTokenParsing(t *testing.T) {
	mw, _ := newGate(t, nil)

	// A garbage bearer token on a public route must not be touched at all.
	if _, bound := gateRequest(t, mw, http.MethodGet, "/books", "Bearer garbage"); bound {
		t.Fatalf("expected anonymous on public route")
	}
}

func TestAuthenticate_MissingHeaderIsAnonymous(t *testing.T) {
	mw, _ := newGate(t, nil)

	if _, bound := gateRequest(t, mw, http.MethodPost, "/books", ""); bound {
		t.Fatalf("expected anonymous without header")
	}
	if _, bound := gateRequest(t, mw, http.MethodPost, "/books", "Token abc"); bound {
		t.Fatalf("expected anonymous with non-bearer scheme")
	}
}

func TestAuthenticate_ValidTokenBindsIdentity(t *testing.T) {
	alice := enabledUser("alice", domain.RoleLibrarian)
	mw, tokens := newGate(t, map[string]*domain.User{"alice": alice})

	signed, err := tokens.Issue(alice)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, bound := gateRequest(t, mw, http.MethodPost, "/books", "Bearer "+signed)
	if !bound {
		t.Fatalf("expected identity to be bound")
	}
	if id.Username != "alice" {
		t.Fatalf("unexpected username: %s", id.Username)
	}
	if len(id.Roles) != 1 || id.Roles[0] != domain.RoleLibrarian {
		t.Fatalf("unexpected roles: %v", id.Roles)
	}
}

func TestAuthenticate_InvalidTokenStaysAnonymous(t *testing.T) {
	alice := enabledUser("alice", domain.RoleMember)
	mw, _ := newGate(t, map[string]*domain.User{"alice": alice})

	// Signed with a different secret: subject resolves, verification fails.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, service.TokenClaims{
		Roles: []string{"ADMIN"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, bound := gateRequest(t, mw, http.MethodPost, "/books", "Bearer "+signed); bound {
		t.Fatalf("expected anonymous for forged token")
	}
}

func TestAuthenticate_ExpiredTokenStaysAnonymous(t *testing.T) {
	alice := enabledUser("alice", domain.RoleMember)
	mw, _ := newGate(t, map[string]*domain.User{"alice": alice})

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, service.TokenClaims{
		Roles: []string{"MEMBER"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, bound := gateRequest(t, mw, http.MethodPost, "/books", "Bearer "+signed); bound {
		t.Fatalf("expected anonymous for expired token")
	}
}

func TestAuthenticate_UnknownSubjectStaysAnonymous(t *testing.T) {
	mw, tokens := newGate(t, nil)

	signed, err := tokens.Issue(enabledUser("ghost", domain.RoleMember))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, bound := gateRequest(t, mw, http.MethodPost, "/books", "Bearer "+signed); bound {
		t.Fatalf("expected anonymous for unknown subject")
	}
}

func TestAuthenticate_DisabledUserStaysAnonymous(t *testing.T) {
	bob := enabledUser("bob", domain.RoleAdmin)
	mw, tokens := newGate(t, map[string]*domain.User{"bob": bob})

	signed, err := tokens.Issue(bob)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	bob.Enabled = false

	if _, bound := gateRequest(t, mw, http.MethodPost, "/books", "Bearer "+signed); bound {
		t.Fatalf("expected anonymous for disabled user")
	}
}

func TestBindIdentity_SingleAssignment(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if !BindIdentity(c, Identity{Username: "first"}) {
		t.Fatalf("first bind should succeed")
	}
	if BindIdentity(c, Identity{Username: "second"}) {
		t.Fatalf("second bind should be rejected")
	}

	id, ok := IdentityFrom(c)
	if !ok || id.Username != "first" {
		t.Fatalf("expected first identity to survive, got %+v ok=%v", id, ok)
	}
}
