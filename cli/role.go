package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/db/models"
)

// The Role command manages the roles granted to users.
type Role struct {
	Add struct {
		Name string `arg:"" help:"The unique name of the role."`
		//nolint:lll // Long struct tags are unavoidable.
		Permissions []string `arg:"" optional:"" help:"Permission patterns in <target>.<action> format, where either part may contain '*' globs. \n Examples: widgets.view, widgets.*, *.*"`
	} `kong:"cmd,help='Add a new role, or replace the permissions of an existing one.'"`
	Rm struct {
		Name string `arg:"" help:"The unique name of the role."`
	} `kong:"cmd,help='Remove a role.'"`
	Ls struct{} `kong:"cmd,help='List roles.'"`
}

// Run the role command.
func (c *Role) Run(kctx *kong.Context, appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	switch subcommand(kctx) {
	case "add":
		role := &models.Role{Name: c.Add.Name}
		update := role.Load(dbCtx, appCtx.DB) == nil
		role.Permissions = c.Add.Permissions
		if err := role.Save(dbCtx, appCtx.DB, update); err != nil {
			return aerrors.NewWithCause(
				fmt.Sprintf("failed saving role '%s'", c.Add.Name), err)
		}
		appCtx.Logger.Info("saved role", "name", role.Name, "permissions", role.Permissions)
	case "rm":
		role := &models.Role{Name: c.Rm.Name}
		if err := role.Delete(dbCtx, appCtx.DB); err != nil {
			return err
		}
		appCtx.Logger.Info("removed role", "name", c.Rm.Name)
	case "ls":
		roles, err := models.Roles(dbCtx, appCtx.DB, nil)
		if err != nil {
			return aerrors.NewWithCause("failed listing roles", err)
		}

		data := make([][]string, len(roles))
		for i, role := range roles {
			data[i] = []string{role.Name, strings.Join(role.Permissions, ",")}
		}

		if len(data) > 0 {
			header := []string{"Name", "Permissions"}
			if err = renderTable(header, data, appCtx.Stdout); err != nil {
				return fmt.Errorf("failed rendering table: %w", err)
			}
		}
	}

	return nil
}
