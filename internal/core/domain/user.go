package domain

import (
	"strings"
	"time"
)

// Role is the coarse-grained permission tag gating route access.
type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole maps a raw string onto a known role. Blank input defaults to
// MEMBER; anything else unknown is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RoleMember:
		return RoleMember, nil
	case RoleLibrarian:
		return RoleLibrarian, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

// NormalizeRoles canonicalizes a raw claim list: entries are trimmed and
// upper-cased, blanks dropped, duplicates removed. Order is preserved.
func NormalizeRoles(raw []string) []Role {
	seen := make(map[Role]struct{}, len(raw))
	out := make([]Role, 0, len(raw))
	for _, r := range raw {
		tag := Role(strings.ToUpper(strings.TrimSpace(r)))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// User models a registered identity. Username and email are each globally
// unique; a user is never physically deleted, only disabled.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Roles returns the role claims issued into this user's tokens. An identity
// holds exactly one role today; tokens carry a list so verification stays
// tolerant of multi-role tokens.
func (u *User) Roles() []string {
	if u.Role == "" {
		return nil
	}
	return []string{string(u.Role)}
}
