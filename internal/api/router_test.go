package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/librarium/library-system/internal/core/domain"
	"github.com/librarium/library-system/internal/core/service"
)

// memUserRepo is an in-memory credential store for end-to-end router tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byEmail(email); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail(email) != nil, nil
}

func (r *memUserRepo) CountEnabledByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countEnabled(role), nil
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	clone := *user
	clone.ID = user.Username
	r.users[clone.Username] = &clone
	result := clone
	return &result, nil
}

func (r *memUserRepo) UpdateRole(_ context.Context, email string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if u.Role == domain.RoleAdmin && role != domain.RoleAdmin && r.countEnabled(domain.RoleAdmin) <= 1 {
		return nil, domain.ErrLastAdmin
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) SetEnabled(_ context.Context, email string, enabled bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	u.Enabled = enabled
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) byEmail(email string) *domain.User {
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *memUserRepo) countEnabled(role domain.Role) int64 {
	var n int64
	for _, u := range r.users {
		if u.Role == role && u.Enabled {
			n++
		}
	}
	return n
}

// memBookRepo is an in-memory catalog store.
type memBookRepo struct {
	mu     sync.Mutex
	nextID int
	books  map[string]*domain.Book
}

func newMemBookRepo() *memBookRepo {
	return &memBookRepo{books: make(map[string]*domain.Book)}
}

func (r *memBookRepo) List(context.Context) ([]*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Book, 0, len(r.books))
	for _, b := range r.books {
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memBookRepo) FindByID(_ context.Context, id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[id]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, domain.ErrBookNotFound
}

func (r *memBookRepo) Create(_ context.Context, book *domain.Book) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.books {
		if b.ISBN == book.ISBN {
			return nil, domain.ErrBookExists
		}
	}
	r.nextID++
	clone := *book
	clone.ID = strconv.Itoa(r.nextID)
	r.books[clone.ID] = &clone
	result := clone
	return &result, nil
}

func (r *memBookRepo) Update(_ context.Context, book *domain.Book) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[book.ID]; !ok {
		return nil, domain.ErrBookNotFound
	}
	clone := *book
	r.books[book.ID] = &clone
	return book, nil
}

func (r *memBookRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(r.books, id)
	return nil
}

func newTestRouter(t *testing.T) (*echo.Echo, *memUserRepo) {
	t.Helper()
	tokens, err := service.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	users := newMemUserRepo()
	e := NewRouter(Deps{
		Users:   users,
		Books:   newMemBookRepo(),
		Tokens:  tokens,
		Metrics: prometheus.NewRegistry(),
		Log:     zerolog.Nop(),
	})
	return e, users
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, e *echo.Echo, username, email, role string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"pass123","email":%q,"role":%q}`, username, email, role)
	rec := doJSON(e, http.MethodPost, "/auth/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"username":%q,"password":"pass123"}`, username))
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}
	return resp.Token
}

// TestRouter_MemberToLibrarianFlow walks the full promotion scenario:
// register a member, confirm public reads work without a token, confirm
// catalog mutation is forbidden, promote via an admin, and mutate with the
// fresh token.
func TestRouter_MemberToLibrarianFlow(t *testing.T) {
	e, _ := newTestRouter(t)

	aliceToken := registerAndLogin(t, e, "alice", "alice@example.com", "MEMBER")
	adminToken := registerAndLogin(t, e, "root", "root@example.com", "ADMIN")

	// Public read without any header.
	if rec := doJSON(e, http.MethodGet, "/books", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET /books: expected 200, got %d", rec.Code)
	}

	// Member token cannot mutate the catalog.
	bookBody := `{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719"}`
	if rec := doJSON(e, http.MethodPost, "/books", aliceToken, bookBody); rec.Code != http.StatusForbidden {
		t.Fatalf("POST /books as member: expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	// No token at all is unauthenticated, not forbidden.
	if rec := doJSON(e, http.MethodPost, "/books", "", bookBody); rec.Code != http.StatusUnauthorized {
		t.Fatalf("POST /books anonymous: expected 401, got %d", rec.Code)
	}

	// Promote alice to LIBRARIAN via the admin route.
	rec := doJSON(e, http.MethodPut, "/admin/users/alice@example.com/role", adminToken, `{"role":"LIBRARIAN"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("promote alice: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The old token still carries the MEMBER claim; a fresh login picks up
	// the new role.
	if rec := doJSON(e, http.MethodPost, "/books", aliceToken, bookBody); rec.Code != http.StatusForbidden {
		t.Fatalf("POST /books with stale token: expected 403, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/auth/login", "", `{"username":"alice","password":"pass123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-login: expected 200, got %d", rec.Code)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	if rec := doJSON(e, http.MethodPost, "/books", login.Token, bookBody); rec.Code != http.StatusCreated {
		t.Fatalf("POST /books as librarian: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AdminRouteForbiddenForNonAdmins(t *testing.T) {
	e, _ := newTestRouter(t)

	libToken := registerAndLogin(t, e, "lib", "lib@example.com", "LIBRARIAN")

	rec := doJSON(e, http.MethodPut, "/admin/users/lib@example.com/role", libToken, `{"role":"ADMIN"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPut, "/admin/users/lib@example.com/role", "", `{"role":"ADMIN"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_LastAdminDemotionRejected(t *testing.T) {
	e, _ := newTestRouter(t)

	adminToken := registerAndLogin(t, e, "root", "root@example.com", "ADMIN")

	rec := doJSON(e, http.MethodPut, "/admin/users/root@example.com/role", adminToken, `{"role":"MEMBER"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status  int    `json:"status"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.Status != http.StatusUnprocessableEntity || resp.Message == "" {
		t.Fatalf("unexpected error envelope: %+v", resp)
	}
}

func TestRouter_DuplicateRegistrationConflicts(t *testing.T) {
	e, _ := newTestRouter(t)

	registerAndLogin(t, e, "alice", "alice@example.com", "MEMBER")

	rec := doJSON(e, http.MethodPost, "/auth/register", "", `{"username":"alice","password":"pass123","email":"other@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/auth/register", "", `{"username":"alice2","password":"pass123","email":"alice@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", rec.Code)
	}
}

func TestRouter_DisabledUserCannotLogin(t *testing.T) {
	e, users := newTestRouter(t)

	registerAndLogin(t, e, "eve", "eve@example.com", "MEMBER")
	if _, err := users.SetEnabled(context.Background(), "eve@example.com", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	rec := doJSON(e, http.MethodPost, "/auth/login", "", `{"username":"eve","password":"pass123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	e, _ := newTestRouter(t)

	if rec := doJSON(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET /health: expected 200, got %d", rec.Code)
	}
}
