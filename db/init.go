package db

import (
	"context"

	"go.hackfix.me/strata/db/models"
	"go.hackfix.me/strata/db/types"
)

// Names of the roles created on initialization.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

func createRoles(ctx context.Context, d types.Querier) (map[string]*models.Role, error) {
	roles := []*models.Role{
		{Name: RoleAdmin, Permissions: []string{"*.*"}},
		{Name: RoleViewer, Permissions: []string{"widgets.view"}},
	}

	rolesMap := map[string]*models.Role{}
	for _, role := range roles {
		if err := role.Save(ctx, d, false); err != nil {
			return nil, err
		}
		rolesMap[role.Name] = role
	}

	return rolesMap, nil
}
