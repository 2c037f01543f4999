package cli

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/models"
)

// The Token command manages API tokens.
type Token struct {
	Create struct {
		User string `arg:"" help:"The name of the user the token authenticates."`
		//nolint:lll // Long struct tags are unavoidable.
		Expiration time.Time `type:"expiration" help:"Expiration as a duration from now or a timestamp in RFC 3339 format. \n Examples: 1h, 30d, 1w2d, %s. Tokens don't expire by default."`
	} `kong:"cmd,help='Create a new API token. The token is written to stdout, and can\\'t be retrieved later.'"`
	Rm struct {
		ID uint64 `arg:"" help:"The ID of the token."`
	} `kong:"cmd,help='Remove an API token.'"`
	Ls struct {
		User string `help:"List only the tokens of this user."`
	} `kong:"cmd,help='List API tokens.'"`
}

// Run the token command.
func (c *Token) Run(kctx *kong.Context, appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	switch subcommand(kctx) {
	case "create":
		user := &models.User{Name: c.Create.User}
		if err := user.Load(dbCtx, appCtx.DB); err != nil {
			return err
		}
		return createToken(appCtx, user, c.Create.Expiration)
	case "rm":
		token := &models.Token{ID: c.Rm.ID}
		if err := token.Delete(dbCtx, appCtx.DB); err != nil {
			return err
		}
		appCtx.Logger.Info("removed token", "id", c.Rm.ID)
	case "ls":
		var filter *crud.Query
		if c.Ls.User != "" {
			filter = crud.NewQuery("u.name = ?", c.Ls.User)
		}
		tokens, err := models.Tokens(dbCtx, appCtx.DB, filter)
		if err != nil {
			return aerrors.NewWithCause("failed listing tokens", err)
		}

		timeNow := appCtx.TimeNow().UTC()
		data := make([][]string, len(tokens))
		for i, t := range tokens {
			expires := "never"
			if t.ExpiresAt.Valid {
				expires = t.ExpiresAt.V.Format(time.RFC3339)
			}
			if t.Expired(timeNow) {
				expires += " (expired)"
			}
			data[i] = []string{
				fmt.Sprintf("%d", t.ID), t.UserName, t.ShortDigest(),
				t.CreatedAt.Format(time.RFC3339), expires,
			}
		}

		if len(data) > 0 {
			header := []string{"ID", "User", "Digest", "Created", "Expires"}
			if err = renderTable(header, data, appCtx.Stdout); err != nil {
				return fmt.Errorf("failed rendering table: %w", err)
			}
		}
	}

	return nil
}

// createToken stores a new token of user and writes it to stdout. A zero
// expiration creates a token that doesn't expire.
func createToken(appCtx *actx.Context, user *models.User, expiration time.Time) error {
	rawToken, digest, err := auth.NewToken()
	if err != nil {
		return err
	}

	token := &models.Token{UserID: user.ID, Digest: digest}
	if !expiration.IsZero() {
		token.ExpiresAt = sql.Null[time.Time]{V: expiration.UTC(), Valid: true}
	}
	if err = token.Save(appCtx.DB.NewContext(), appCtx.DB); err != nil {
		return aerrors.NewWithCause("failed creating token", err, "user", user.Name)
	}

	appCtx.Logger.Info("created token", "id", token.ID, "user", user.Name)
	_, err = fmt.Fprintln(appCtx.Stdout, rawToken)

	return err
}
