package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpatrick/rbac"
)

func TestSplitPermission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		perm      string
		expTarget string
		expAction string
		expOK     bool
	}{
		{perm: "widgets.view", expTarget: "widgets", expAction: "view", expOK: true},
		{perm: "api.widgets.add", expTarget: "api.widgets", expAction: "add", expOK: true},
		{perm: "*.*", expTarget: "*", expAction: "*", expOK: true},
		{perm: "widgets", expOK: false},
		{perm: ".view", expOK: false},
		{perm: "widgets.", expOK: false},
		{perm: "", expOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.perm, func(t *testing.T) {
			t.Parallel()

			target, action, ok := SplitPermission(tt.perm)
			assert.Equal(t, tt.expOK, ok)
			assert.Equal(t, tt.expTarget, target)
			assert.Equal(t, tt.expAction, action)
		})
	}
}

func TestRBACUserHasPerm(t *testing.T) {
	t.Parallel()

	admin, err := NewRole("admin", "*.*")
	require.NoError(t, err)
	viewer, err := NewRole("viewer", "widgets.view")
	require.NoError(t, err)
	editor, err := NewRole("editor", "widgets.*")
	require.NoError(t, err)

	tests := []struct {
		name  string
		roles []string
		perm  string
		exp   bool
	}{
		{name: "ok/admin_any", roles: []string{"admin"}, perm: "widgets.delete", exp: true},
		{name: "ok/viewer_view", roles: []string{"viewer"}, perm: "widgets.view", exp: true},
		{name: "ok/editor_glob", roles: []string{"editor"}, perm: "widgets.change", exp: true},
		{name: "ok/multiple_roles", roles: []string{"viewer", "editor"}, perm: "widgets.add", exp: true},
		{name: "err/viewer_add", roles: []string{"viewer"}, perm: "widgets.add", exp: false},
		{name: "err/editor_other_target", roles: []string{"editor"}, perm: "gadgets.view", exp: false},
		{name: "err/no_roles", perm: "widgets.view", exp: false},
		{name: "err/malformed", roles: []string{"admin"}, perm: "widgets", exp: false},
	}

	roles := map[string]rbac.Role{"admin": admin, "viewer": viewer, "editor": editor}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := &RBACUser{Name: "alice"}
			for _, name := range tt.roles {
				user.Roles = append(user.Roles, roles[name])
			}

			assert.True(t, user.IsAuthenticated())
			assert.Equal(t, "alice", user.Username())
			assert.Equal(t, tt.exp, user.HasPerm(tt.perm))
		})
	}
}

func TestNewRoleInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewRole("broken", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid permission pattern")
}

func TestAnonymousUser(t *testing.T) {
	t.Parallel()

	var user User = AnonymousUser{}
	assert.False(t, user.IsAuthenticated())
	assert.Empty(t, user.Username())
	assert.False(t, user.HasPerm("widgets.view"))
}
