package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zpatrick/rbac"

	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/types"
)

// Role is a named set of permission patterns granted to users. Patterns have
// the form "<target>.<action>", where either part may contain '*' globs.
type Role struct {
	ID          uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string
	Permissions []string
}

// RBAC converts the role to an RBAC role.
func (r *Role) RBAC() (rbac.Role, error) {
	role, err := auth.NewRole(r.Name, r.Permissions...)
	if err != nil {
		return rbac.Role{}, fmt.Errorf("invalid role '%s': %w", r.Name, err)
	}
	return role, nil
}

// Save stores the role data in the database.
func (r *Role) Save(ctx context.Context, d types.Querier, update bool) error {
	if _, err := r.RBAC(); err != nil {
		return types.InvalidInputError{Msg: err.Error()}
	}
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	perms, err := json.Marshal(r.Permissions)
	if err != nil {
		return fmt.Errorf("failed encoding role permissions: %w", err)
	}

	timeNow := d.TimeNow().UTC()
	if update {
		filter, filterStr, ok := lookup("", r.ID, r.Name)
		if !ok {
			return errors.New("must provide either a role name or ID to update")
		}

		args := append([]any{timeNow, string(perms)}, filter.Args...)
		res, err := d.ExecContext(ctx, fmt.Sprintf(`UPDATE roles
			SET updated_at = ?,
			    permissions = ?
			WHERE %s`, filter.Where), args...)
		if err != nil {
			return types.Err("role", filterStr, err)
		}
		if err = checkAffected(res, "role", filterStr); err != nil {
			return err
		}
		r.UpdatedAt = timeNow

		return nil
	}

	res, err := d.ExecContext(ctx, `INSERT INTO roles
		(id, created_at, updated_at, name, permissions)
		VALUES (NULL, ?, ?, ?, ?)`, timeNow, timeNow, r.Name, string(perms))
	if err != nil {
		return types.Err("role", fmt.Sprintf("name '%s'", r.Name), err)
	}

	if r.ID, err = lastInsertID(res); err != nil {
		return err
	}
	r.CreatedAt = timeNow
	r.UpdatedAt = timeNow

	return nil
}

// Load the role data from the database. Either the role ID or Name must be set
// for the lookup.
func (r *Role) Load(ctx context.Context, d types.Querier) error {
	filter, filterStr, ok := lookup("r.", r.ID, r.Name)
	if !ok {
		return types.InvalidInputError{Msg: "either role ID or Name must be set"}
	}

	roles, err := Roles(ctx, d, filter)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return types.NoResultError{ModelName: "role", ID: filterStr}
	}
	*r = *roles[0]

	return nil
}

// Delete removes the role from the database, along with its user assignments.
func (r *Role) Delete(ctx context.Context, d types.Querier) error {
	filter, filterStr, ok := lookup("", r.ID, r.Name)
	if !ok {
		return types.InvalidInputError{Msg: "either role ID or Name must be set"}
	}

	res, err := d.ExecContext(ctx, fmt.Sprintf(`DELETE FROM roles WHERE %s`, filter.Where), filter.Args...)
	if err != nil {
		return types.Err("role", filterStr, err)
	}

	return checkAffected(res, "role", filterStr)
}

// Roles returns one or more roles from the database. An optional filter can be
// passed to limit the results.
func Roles(ctx context.Context, d types.Querier, filter *crud.Query) (roles []*Role, rerr error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf(`SELECT r.id, r.created_at, r.updated_at, r.name, r.permissions
		FROM roles r %s
		ORDER BY r.name ASC %s`, where, pageClause(filter))

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "roles", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing roles rows: %w", err)
		}
	}()

	roles = make([]*Role, 0)
	for rows.Next() {
		var (
			r     Role
			perms string
		)
		err = rows.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.Name, &perms)
		if err != nil {
			return nil, types.ScanError{ModelName: "role", Err: err}
		}
		if err = json.Unmarshal([]byte(perms), &r.Permissions); err != nil {
			return nil, types.ScanError{ModelName: "role", Err: err}
		}
		roles = append(roles, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over roles rows: %w", err)
	}

	return roles, nil
}
