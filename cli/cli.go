package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"go.hackfix.me/strata/app/config"
	actx "go.hackfix.me/strata/app/context"
)

// CLI is the command line interface of Strata.
type CLI struct {
	Init  Init  `kong:"cmd,help='Create the database and the default roles.'"`
	Role  Role  `kong:"cmd,help='Manage roles.'"`
	Serve Serve `kong:"cmd,help='Start the web server.'"`
	Token Token `kong:"cmd,help='Manage API tokens.'"`
	User  User  `kong:"cmd,help='Manage users.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: I'm deliberately not using kong.ConfigFlag or its support for reading
	// values from configuration files, since I want to manage configuration
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the Strata configuration file.'"`
	DataDir    string           `kong:"default='${dataDir}',help='Path to the directory where Strata data is stored.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(appCtx *actx.Context, configFilePath, dataDir, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("strata"),
		kong.UsageOnError(),
		kong.DefaultEnvars("STRATA"),
		kong.NamedMapper("expiration", &ExpirationMapper{timeNow: appCtx.TimeNow}),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.ValueFormatter(func(value *kong.Value) string {
			if value.Name == "expiration" {
				y, m, d := appCtx.TimeNow().Date()
				exampleExp := time.Date(y, m, d+1, 0, 0, 0, 0, appCtx.TimeNow().Location())
				value.Help = fmt.Sprintf(value.OrigHelp, exampleExp.Format(time.RFC3339))
			}
			return value.Help
		}),
		kong.Vars{
			"configFile": configFilePath,
			"dataDir":    dataDir,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Serve.Address == "" && cfg.Server.Address.Valid {
		c.Serve.Address = cfg.Server.Address.V
	}
	if c.Serve.RateLimit == 0 && cfg.Server.RateLimit.Valid {
		c.Serve.RateLimit = cfg.Server.RateLimit.V
	}
	if c.Serve.RateBurst == 0 && cfg.Server.RateBurst.Valid {
		c.Serve.RateBurst = cfg.Server.RateBurst.V
	}
}
