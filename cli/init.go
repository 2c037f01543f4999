package cli

import (
	"fmt"
	"time"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/db"
	"go.hackfix.me/strata/db/models"
)

// The Init command creates the Strata database with the default roles, and
// optionally an administrator with an API token.
type Init struct {
	Admin string `help:"Name of an administrator user to create. Its API token is written to stdout."`
}

// Run the init command.
func (c *Init) Run(appCtx *actx.Context) error {
	if appCtx.VersionInit != "" {
		return fmt.Errorf("Strata is already initialized with version %s", appCtx.VersionInit)
	}

	err := appCtx.DB.Init(appCtx.Version.Semantic, appCtx.Logger)
	if err != nil {
		return aerrors.NewWithCause("failed initializing database", err)
	}

	if c.Admin == "" {
		return nil
	}

	dbCtx := appCtx.DB.NewContext()
	role := &models.Role{Name: db.RoleAdmin}
	if err = role.Load(dbCtx, appCtx.DB); err != nil {
		return err
	}

	user := &models.User{Name: c.Admin, Roles: []*models.Role{role}}
	if err = user.Save(dbCtx, appCtx.DB, false); err != nil {
		return aerrors.NewWithCause("failed creating administrator", err, "name", c.Admin)
	}

	return createToken(appCtx, user, time.Time{})
}
