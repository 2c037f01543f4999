package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/models"
	"go.hackfix.me/strata/db/types"
)

// The User command manages Strata users.
type User struct {
	Add struct {
		Name          string   `arg:"" help:"The unique name of the user."`
		Roles         []string `short:"r" name:"role" help:"Name of a role to grant to the user. Can be repeated."`
		PasswordStdin bool     `help:"Read the user's password from stdin."`
	} `kong:"cmd,help='Add a new user.'"`
	Rm struct {
		Name string `arg:"" help:"The unique name of the user."`
	} `kong:"cmd,help='Remove a user.'"`
	Ls     struct{} `kong:"cmd,help='List users.'"`
	Passwd struct {
		Name string `arg:"" help:"The unique name of the user."`
	} `kong:"cmd,help='Set the password of a user, read from stdin. An empty password disables password authentication.'"`
	Grant struct {
		Name  string   `arg:"" help:"The unique name of the user."`
		Roles []string `arg:"" help:"Names of the roles to grant."`
	} `kong:"cmd,help='Grant roles to a user.'"`
	Revoke struct {
		Name  string   `arg:"" help:"The unique name of the user."`
		Roles []string `arg:"" help:"Names of the roles to revoke."`
	} `kong:"cmd,help='Revoke roles from a user.'"`
}

// Run the user command.
func (c *User) Run(kctx *kong.Context, appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	cmd := subcommand(kctx)
	switch cmd {
	case "add":
		roles, err := loadRoles(appCtx, c.Add.Roles)
		if err != nil {
			return err
		}
		user := &models.User{Name: c.Add.Name, Roles: roles}
		if c.Add.PasswordStdin {
			if user.PasswordHash, err = readPassword(appCtx); err != nil {
				return err
			}
		}
		if err = user.Save(dbCtx, appCtx.DB, false); err != nil {
			return aerrors.NewWithCause(
				fmt.Sprintf("failed adding user '%s'", c.Add.Name), err)
		}
		appCtx.Logger.Info("added user", "name", user.Name, "roles", user.RoleNames())
	case "rm":
		user := &models.User{Name: c.Rm.Name}
		if err := user.Delete(dbCtx, appCtx.DB); err != nil {
			return err
		}
		appCtx.Logger.Info("removed user", "name", c.Rm.Name)
	case "ls":
		users, err := models.Users(dbCtx, appCtx.DB, nil)
		if err != nil {
			return aerrors.NewWithCause("failed listing users", err)
		}

		data := make([][]string, len(users))
		for i, user := range users {
			hasPassword := "no"
			if len(user.PasswordHash) > 0 {
				hasPassword = "yes"
			}
			data[i] = []string{
				user.Name, strings.Join(user.RoleNames(), ","), hasPassword,
				user.CreatedAt.Format("2006-01-02 15:04:05"),
			}
		}

		if len(data) > 0 {
			header := []string{"Name", "Roles", "Password", "Created"}
			if err = renderTable(header, data, appCtx.Stdout); err != nil {
				return fmt.Errorf("failed rendering table: %w", err)
			}
		}
	case "passwd":
		hash, err := readPassword(appCtx)
		if errors.Is(err, errEmptyPassword) {
			// Clearing the password disables password authentication.
			hash, err = []byte{}, nil
		}
		if err != nil {
			return err
		}
		user := &models.User{Name: c.Passwd.Name, PasswordHash: hash}
		if err = user.Save(dbCtx, appCtx.DB, true); err != nil {
			return aerrors.NewWithCause(
				fmt.Sprintf("failed changing password of user '%s'", c.Passwd.Name), err)
		}
		appCtx.Logger.Info("changed user password", "name", c.Passwd.Name)
	case "grant", "revoke":
		name, roleNames := c.Grant.Name, c.Grant.Roles
		if cmd == "revoke" {
			name, roleNames = c.Revoke.Name, c.Revoke.Roles
		}
		return c.updateRoles(appCtx, cmd, name, roleNames)
	}

	return nil
}

func (c *User) updateRoles(appCtx *actx.Context, action, name string, roleNames []string) error {
	dbCtx := appCtx.DB.NewContext()
	user := &models.User{Name: name}
	if err := user.Load(dbCtx, appCtx.DB); err != nil {
		return err
	}

	roles, err := loadRoles(appCtx, roleNames)
	if err != nil {
		return err
	}

	byName := make(map[string]*models.Role, len(user.Roles))
	for _, r := range user.Roles {
		byName[r.Name] = r
	}
	for _, r := range roles {
		if action == "grant" {
			byName[r.Name] = r
		} else {
			delete(byName, r.Name)
		}
	}

	newRoles := make([]*models.Role, 0, len(byName))
	for _, r := range byName {
		newRoles = append(newRoles, r)
	}
	if err = user.SetRoles(dbCtx, appCtx.DB, newRoles...); err != nil {
		return aerrors.NewWithCause(fmt.Sprintf("failed updating roles of user '%s'", name), err)
	}

	if err = user.Load(dbCtx, appCtx.DB); err != nil {
		return err
	}
	appCtx.Logger.Info("updated user roles", "name", name, "roles", user.RoleNames())

	return nil
}

func loadRoles(appCtx *actx.Context, names []string) ([]*models.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}

	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}
	roles, err := models.Roles(appCtx.DB.NewContext(), appCtx.DB, crud.NewQuery(
		fmt.Sprintf("r.name IN (%s)", strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")),
		args...))
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		found[r.Name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := found[name]; !ok {
			return nil, types.NoResultError{ModelName: "role", ID: fmt.Sprintf("name '%s'", name)}
		}
	}

	return roles, nil
}

var errEmptyPassword = errors.New("empty password")

// readPassword reads a password from the first line of stdin, and returns its
// hash.
func readPassword(appCtx *actx.Context) ([]byte, error) {
	if appCtx.Stdin == nil {
		return nil, errors.New("stdin is not available")
	}

	scanner := bufio.NewScanner(appCtx.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed reading password: %w", err)
		}
		return nil, errEmptyPassword
	}

	password := strings.TrimRight(scanner.Text(), "\r")
	if password == "" {
		return nil, errEmptyPassword
	}

	return auth.HashPassword(password)
}
