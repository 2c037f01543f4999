package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpatrick/rbac"

	"go.hackfix.me/strata/view"
)

func newTestContext(method, target string) *view.Context {
	return view.NewContext(httptest.NewRequest(method, target, nil), nil)
}

func okService(c *view.Context) (view.Response, error) {
	return view.Text(http.StatusOK, "hello "+UserFrom(c, UserKey).Username()), nil
}

func staticBackend(user User, err error) Backend {
	return BackendFunc(func(*view.Context, Credentials) (User, error) {
		return user, err
	})
}

func newTestUser(t *testing.T, name string, patterns ...string) *RBACUser {
	t.Helper()

	role, err := NewRole(name+"-role", patterns...)
	require.NoError(t, err)

	return &RBACUser{Name: name, Roles: []rbac.Role{role}}
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	alice := &RBACUser{Name: "alice"}
	errDB := errors.New("database is down")

	tests := []struct {
		name        string
		backend     Backend
		expErr      error
		expUsername string
		expAuthn    bool
	}{
		{name: "ok/user", backend: staticBackend(alice, nil), expUsername: "alice", expAuthn: true},
		{name: "ok/no_user", backend: staticBackend(nil, nil)},
		{name: "ok/invalid_credentials", backend: staticBackend(nil, ErrInvalidCredentials)},
		{
			name: "ok/first_backend_wins",
			backend: Backends{
				staticBackend(nil, nil),
				staticBackend(nil, ErrInvalidCredentials),
				staticBackend(alice, nil),
				staticBackend(&RBACUser{Name: "bob"}, nil),
			},
			expUsername: "alice",
			expAuthn:    true,
		},
		{name: "err/backend", backend: staticBackend(nil, errDB), expErr: errDB},
		{
			name:    "err/backend_chain",
			backend: Backends{staticBackend(nil, nil), staticBackend(nil, errDB), staticBackend(alice, nil)},
			expErr:  errDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen User
			svc := view.IntoService(func(c *view.Context) (view.Response, error) {
				seen = UserFrom(c, UserKey)
				return view.NoContent(), nil
			}, Authentication(tt.backend))

			_, err := svc(newTestContext(http.MethodGet, "/"))
			if tt.expErr != nil {
				require.ErrorIs(t, err, tt.expErr)
				assert.Nil(t, seen)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, seen)
			assert.Equal(t, tt.expUsername, seen.Username())
			assert.Equal(t, tt.expAuthn, seen.IsAuthenticated())
		})
	}
}

func TestAuthenticationOptions(t *testing.T) {
	t.Parallel()

	var gotCreds Credentials
	backend := BackendFunc(func(_ *view.Context, creds Credentials) (User, error) {
		gotCreds = creds
		return &RBACUser{Name: creds["name"].(string)}, nil //nolint:forcetypeassert // Set below.
	})

	svc := view.IntoService(func(c *view.Context) (view.Response, error) {
		return view.Text(http.StatusOK, UserFrom(c, "who").Username()), nil
	},
		Authentication(backend, WithUserKey("who"), WithCredentialKeys("name", "missing")),
		IsAuthenticated(WithUserKey("who")),
	)

	c := view.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), map[string]any{"name": "carol"})
	resp, err := svc(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, Credentials{"name": "carol"}, gotCreds)
	assert.Equal(t, "carol", c.String("name"))

	_, ok := c.Get(UserKey)
	assert.False(t, ok)
}

func TestPermissionsCustomUserKey(t *testing.T) {
	t.Parallel()

	admin := newTestUser(t, "admin", "*.*")
	viewer := newTestUser(t, "viewer", "widgets.view")

	tests := []struct {
		name      string
		user      User
		perms     []string
		expStatus int
	}{
		{name: "ok/admin", user: admin, perms: []string{"widgets.view", "widgets.delete"}, expStatus: http.StatusOK},
		{name: "ok/viewer", user: viewer, perms: []string{"widgets.view"}, expStatus: http.StatusOK},
		{name: "err/viewer_delete", user: viewer, perms: []string{"widgets.delete"}, expStatus: http.StatusForbidden},
		{name: "err/anonymous", perms: []string{"widgets.view"}, expStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := view.IntoService(func(*view.Context) (view.Response, error) {
				return view.Text(http.StatusOK, "ok"), nil
			},
				Authentication(staticBackend(tt.user, nil), WithUserKey("me")),
				IsAuthenticated(WithUserKey("me")),
				HasPermissionsFor("me", tt.perms...),
			)

			resp, err := svc(newTestContext(http.MethodGet, "/"))
			require.NoError(t, err)
			assert.Equal(t, tt.expStatus, resp.StatusCode())
		})
	}
}

func TestPermissionLayers(t *testing.T) {
	t.Parallel()

	viewer := newTestUser(t, "viewer", "widgets.view")
	admin := newTestUser(t, "admin", "*.*")

	tests := []struct {
		name      string
		user      User
		layers    []view.Layer
		expStatus int
	}{
		{
			name:      "ok/authenticated",
			user:      viewer,
			layers:    []view.Layer{IsAuthenticated()},
			expStatus: http.StatusOK,
		},
		{
			name:      "err/anonymous",
			layers:    []view.Layer{IsAuthenticated()},
			expStatus: http.StatusForbidden,
		},
		{
			name:      "ok/has_permission",
			user:      viewer,
			layers:    []view.Layer{HasPermissions("widgets.view")},
			expStatus: http.StatusOK,
		},
		{
			name:      "err/missing_one_permission",
			user:      viewer,
			layers:    []view.Layer{HasPermissions("widgets.view", "widgets.add")},
			expStatus: http.StatusForbidden,
		},
		{
			name:      "ok/admin_all_permissions",
			user:      admin,
			layers:    []view.Layer{HasPermissions("widgets.view", "widgets.add", "gadgets.delete")},
			expStatus: http.StatusOK,
		},
		{
			name:      "err/anonymous_permission",
			layers:    []view.Layer{HasPermissions("widgets.view")},
			expStatus: http.StatusForbidden,
		},
		{
			name:      "ok/no_rules",
			layers:    []view.Layer{Permission()},
			expStatus: http.StatusOK,
		},
		{
			name: "err/any_rule_false",
			user: admin,
			layers: []view.Layer{Permission(
				func(*view.Context) bool { return true },
				func(*view.Context) bool { return false },
			)},
			expStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			layers := append([]view.Layer{Authentication(staticBackend(tt.user, nil))}, tt.layers...)
			svc := view.IntoService(okService, layers...)

			resp, err := svc(newTestContext(http.MethodGet, "/"))
			require.NoError(t, err)
			assert.Equal(t, tt.expStatus, resp.StatusCode())
		})
	}
}

func TestPermissionDeniedSkipsService(t *testing.T) {
	t.Parallel()

	called := false
	svc := view.IntoService(func(*view.Context) (view.Response, error) {
		called = true
		return view.NoContent(), nil
	}, Authentication(staticBackend(nil, nil)), IsAuthenticated())

	resp, err := svc(newTestContext(http.MethodDelete, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.False(t, called)
}

func TestUserFromWithoutAuthentication(t *testing.T) {
	t.Parallel()

	c := newTestContext(http.MethodGet, "/")
	assert.Equal(t, AnonymousUser{}, UserFrom(c, UserKey))

	c.Set(UserKey, "not a user")
	assert.Equal(t, AnonymousUser{}, UserFrom(c, UserKey))
}
