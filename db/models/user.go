package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zpatrick/rbac"

	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/types"
)

// User represents a user that can authenticate to the API.
type User struct {
	ID           uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string
	PasswordHash []byte
	Roles        []*Role
}

// AuthUser converts the user to an authenticated auth.User with the
// permissions of its roles.
func (u *User) AuthUser() (*auth.RBACUser, error) {
	roles := make([]rbac.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		role, err := r.RBAC()
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	return &auth.RBACUser{Name: u.Name, Roles: roles}, nil
}

// RoleNames returns the names of the user's roles.
func (u *User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}
	return names
}

// Save stores the user data in the database. On update, the password hash is
// changed only if it's set.
func (u *User) Save(ctx context.Context, d types.Querier, update bool) error {
	timeNow := d.TimeNow().UTC()
	if update {
		filter, filterStr, ok := lookup("", u.ID, u.Name)
		if !ok {
			return errors.New("must provide either a user name or ID to update")
		}

		set := "updated_at = ?"
		args := []any{timeNow}
		if u.PasswordHash != nil {
			set += ", password_hash = ?"
			args = append(args, u.PasswordHash)
		}
		args = append(args, filter.Args...)

		res, err := d.ExecContext(ctx,
			fmt.Sprintf(`UPDATE users SET %s WHERE %s`, set, filter.Where), args...)
		if err != nil {
			return types.Err("user", filterStr, err)
		}
		if err = checkAffected(res, "user", filterStr); err != nil {
			return err
		}
		u.UpdatedAt = timeNow

		return nil
	}

	res, err := d.ExecContext(ctx, `INSERT INTO users
		(id, created_at, updated_at, name, password_hash)
		VALUES (NULL, ?, ?, ?, ?)`, timeNow, timeNow, u.Name, u.PasswordHash)
	if err != nil {
		return types.Err("user", fmt.Sprintf("name '%s'", u.Name), err)
	}

	if u.ID, err = lastInsertID(res); err != nil {
		return err
	}
	u.CreatedAt = timeNow
	u.UpdatedAt = timeNow

	if len(u.Roles) > 0 {
		return u.SetRoles(ctx, d, u.Roles...)
	}

	return nil
}

// SetRoles replaces the roles of the user. The user ID and the role IDs must
// be set.
func (u *User) SetRoles(ctx context.Context, d types.Querier, roles ...*Role) error {
	if u.ID == 0 {
		return types.InvalidInputError{Msg: "user ID must be set"}
	}

	_, err := d.ExecContext(ctx, `DELETE FROM users_roles WHERE user_id = ?`, u.ID)
	if err != nil {
		return fmt.Errorf("failed removing roles of user '%s': %w", u.Name, err)
	}

	for _, r := range roles {
		_, err = d.ExecContext(ctx,
			`INSERT INTO users_roles (user_id, role_id) VALUES (?, ?)`, u.ID, r.ID)
		if err != nil {
			return types.Err("role", fmt.Sprintf("ID %d", r.ID), err)
		}
	}
	u.Roles = roles

	return nil
}

// Load the user data from the database. Either the user ID or Name must be set
// for the lookup.
func (u *User) Load(ctx context.Context, d types.Querier) error {
	filter, filterStr, ok := lookup("u.", u.ID, u.Name)
	if !ok {
		return types.InvalidInputError{Msg: "either user ID or Name must be set"}
	}

	users, err := Users(ctx, d, filter)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		return types.NoResultError{ModelName: "user", ID: filterStr}
	}

	// The unique constraint on both users.id and users.name should return only
	// a single result.
	if len(users) > 1 {
		panic(fmt.Sprintf("users query returned more than 1 user: %d", len(users)))
	}
	*u = *users[0]

	return nil
}

// Delete removes the user data from the database. Either the user ID or Name
// must be set for the lookup. It returns an error if the user doesn't exist.
func (u *User) Delete(ctx context.Context, d types.Querier) error {
	filter, filterStr, ok := lookup("", u.ID, u.Name)
	if !ok {
		return types.InvalidInputError{Msg: "either user ID or Name must be set"}
	}

	res, err := d.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM users WHERE %s`, filter.Where), filter.Args...)
	if err != nil {
		return types.Err("user", filterStr, err)
	}

	return checkAffected(res, "user", filterStr)
}

// Users returns one or more users from the database, along with their roles.
// An optional filter can be passed to limit the results.
func Users(ctx context.Context, d types.Querier, filter *crud.Query) ([]*User, error) {
	users, err := queryUsers(ctx, d, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}

	byID := make(map[uint64]*User, len(users))
	ids := make([]any, len(users))
	for i, u := range users {
		byID[u.ID] = u
		ids[i] = u.ID
	}

	roleFilter := crud.NewQuery(fmt.Sprintf(
		"r.id IN (SELECT role_id FROM users_roles WHERE user_id IN (%s))",
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")), ids...)
	roles, err := Roles(ctx, d, roleFilter)
	if err != nil {
		return nil, err
	}
	rolesByID := make(map[uint64]*Role, len(roles))
	for _, r := range roles {
		rolesByID[r.ID] = r
	}

	assignments, err := userRoles(ctx, d, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if u, ok := byID[a[0]]; ok {
			if r, ok := rolesByID[a[1]]; ok {
				u.Roles = append(u.Roles, r)
			}
		}
	}

	return users, nil
}

func queryUsers(ctx context.Context, d types.Querier, filter *crud.Query) (users []*User, rerr error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf(`SELECT u.id, u.created_at, u.updated_at, u.name, u.password_hash
		FROM users u %s
		ORDER BY u.name ASC %s`, where, pageClause(filter))

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "users", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing users rows: %w", err)
		}
	}()

	users = make([]*User, 0)
	for rows.Next() {
		var u User
		err = rows.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Name, &u.PasswordHash)
		if err != nil {
			return nil, types.ScanError{ModelName: "user", Err: err}
		}
		users = append(users, &u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over users rows: %w", err)
	}

	return users, nil
}

// userRoles returns the (user ID, role ID) pairs of the users, ordered by role
// name.
func userRoles(ctx context.Context, d types.Querier, userIDs []any) (pairs [][2]uint64, rerr error) {
	rows, err := d.QueryContext(ctx, fmt.Sprintf(`SELECT ur.user_id, ur.role_id
		FROM users_roles ur
		INNER JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id IN (%s)
		ORDER BY r.name ASC`, strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")),
		userIDs...)
	if err != nil {
		return nil, types.LoadError{ModelName: "user roles", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing user roles rows: %w", err)
		}
	}()

	for rows.Next() {
		var p [2]uint64
		if err = rows.Scan(&p[0], &p[1]); err != nil {
			return nil, types.ScanError{ModelName: "user role", Err: err}
		}
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}
