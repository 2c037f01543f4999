package auth

import (
	"fmt"
	"strings"

	"github.com/zpatrick/rbac"
)

// User is the identity behind a request.
type User interface {
	Username() string
	IsAuthenticated() bool
	HasPerm(perm string) bool
}

// AnonymousUser is the User of requests that weren't authenticated.
type AnonymousUser struct{}

var _ User = AnonymousUser{}

// Username returns an empty string.
func (AnonymousUser) Username() string { return "" }

// IsAuthenticated returns false.
func (AnonymousUser) IsAuthenticated() bool { return false }

// HasPerm returns false.
func (AnonymousUser) HasPerm(string) bool { return false }

// RBACUser is an authenticated User whose permissions are granted by roles.
// Permission strings have the form "<target>.<action>", e.g. "widgets.view".
type RBACUser struct {
	Name  string
	Roles []rbac.Role
}

var _ User = (*RBACUser)(nil)

// Username returns the user's name.
func (u *RBACUser) Username() string { return u.Name }

// IsAuthenticated returns true.
func (u *RBACUser) IsAuthenticated() bool { return true }

// HasPerm reports whether any of the user's roles grants perm.
func (u *RBACUser) HasPerm(perm string) bool {
	target, action, ok := SplitPermission(perm)
	if !ok {
		return false
	}

	for _, role := range u.Roles {
		can, err := role.Can(action, target)
		if err == nil && can {
			return true
		}
	}

	return false
}

// NewRole returns an RBAC role with the given name that grants the permission
// patterns. Patterns have the same "<target>.<action>" form as permissions,
// and either part may contain '*' globs, e.g. "widgets.*" or "*.view".
func NewRole(name string, patterns ...string) (rbac.Role, error) {
	role := rbac.Role{RoleID: name}
	for _, pattern := range patterns {
		target, action, ok := SplitPermission(pattern)
		if !ok {
			return rbac.Role{}, fmt.Errorf("invalid permission pattern '%s'", pattern)
		}
		role.Permissions = append(role.Permissions, rbac.NewGlobPermission(action, target))
	}

	return role, nil
}

// SplitPermission splits a "<target>.<action>" permission string at its last
// dot.
func SplitPermission(perm string) (target, action string, ok bool) {
	idx := strings.LastIndexByte(perm, '.')
	if idx <= 0 || idx == len(perm)-1 {
		return "", "", false
	}

	return perm[:idx], perm[idx+1:], true
}
