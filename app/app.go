package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/strata/app/config"
	actx "go.hackfix.me/strata/app/context"
	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/cli"
	"go.hackfix.me/strata/db"
	"go.hackfix.me/strata/db/queries"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application.
func New(name, configFilePath, dataDir string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(app.ctx, configFilePath, dataDir, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if err := app.initConfig(); err != nil {
		return err
	}
	app.cli.ApplyConfig(app.ctx.Config)

	if err := app.initDB(); err != nil {
		return err
	}

	if err := app.cli.Execute(app.ctx); err != nil {
		return err
	}

	return nil
}

func (app *App) initConfig() error {
	if app.ctx.Config != nil {
		return nil
	}

	cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := cfg.Load(); err != nil {
		return aerrors.NewWithCause("failed loading configuration", err, "path", cfg.Path())
	}
	cfg.SetDefaults()
	app.ctx.Config = cfg

	return nil
}

// initDB opens the database, unless one was provided with WithDB, and checks
// that it's in the state expected by the command.
func (app *App) initDB() error {
	if app.ctx.DB == nil {
		if err := app.ctx.FS.MkdirAll(app.cli.DataDir, 0o700); err != nil {
			return fmt.Errorf("failed creating data directory: %w", err)
		}

		dbPath := filepath.Join(app.cli.DataDir, fmt.Sprintf("%s.db", app.name))
		d, err := db.Open(app.ctx.Ctx, dbPath, app.ctx.TimeNow)
		if err != nil {
			return aerrors.NewWithCause("failed opening database", err, "path", dbPath)
		}
		app.ctx.DB = d
	}

	version, err := queries.Version(app.ctx.Ctx, app.ctx.DB)
	if err != nil {
		return fmt.Errorf("failed reading database version: %w", err)
	}
	app.ctx.VersionInit = version.V

	cmd := app.cli.Command()
	switch {
	case cmd == "init":
		return nil
	case !version.Valid:
		return aerrors.NewWith(
			fmt.Sprintf("%s is not initialized", app.name),
			"hint", fmt.Sprintf("Did you forget to run '%s init'?", app.name))
	default:
		if err = app.ctx.DB.Migrate(app.ctx.Logger); err != nil {
			return fmt.Errorf("failed migrating database: %w", err)
		}
	}

	return nil
}
