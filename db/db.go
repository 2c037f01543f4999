package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/strata/db/migrator"
	"go.hackfix.me/strata/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps sql.DB with additional context and migration functionality.
type DB struct {
	*sql.DB
	ctx        context.Context
	timeNow    func() time.Time
	path       string
	migrations []*migrator.Migration
}

var _ types.Querier = (*DB)(nil)

// Init creates the database schema and initial records.
func (d *DB) Init(appVersion string, logger *slog.Logger) error {
	dblogger := logger.With("path", d.path)
	dblogger.Debug("initializing database")

	err := migrator.RunMigrations(d, d.migrations, migrator.MigrationUp, "all", logger)
	if err != nil {
		return err
	}

	ctx := d.NewContext()
	_, err = d.ExecContext(ctx, `INSERT INTO _meta (version) VALUES (?)`, appVersion)
	if err != nil {
		return fmt.Errorf("failed inserting into _meta: %w", err)
	}

	if _, err = createRoles(ctx, d); err != nil {
		return err
	}

	dblogger.Info("database initialized")

	return nil
}

// Migrate runs the pending migrations, e.g. after an upgrade.
func (d *DB) Migrate(logger *slog.Logger) error {
	return migrator.RunMigrations(d, d.migrations, migrator.MigrationUp, "all", logger)
}

// NewContext returns a new child context of the main database context.
func (d *DB) NewContext() context.Context {
	return d.ctx
}

// Open creates and configures a new SQLite database connection with migrations support.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	sqliteDB, err := sql.Open("sqlite", withPragma(path, "foreign_keys(1)"))
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		// Each connection to an in-memory database opens a new one.
		// See https://github.com/mattn/go-sqlite3#faq
		sqliteDB.SetMaxOpenConns(1)
		sqliteDB.SetMaxIdleConns(1)
		sqliteDB.SetConnMaxLifetime(time.Duration(math.Inf(1)))
	}

	d := &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow}

	// Foreign key enforcement is enabled for every pooled connection by the
	// DSN pragma, so this only checks that it's effective.
	var fkEnabled bool
	if err = d.QueryRow(`PRAGMA foreign_keys`).Scan(&fkEnabled); err != nil {
		return nil, fmt.Errorf("failed checking foreign key enforcement: %w", err)
	}
	if !fkEnabled {
		return nil, errors.New("foreign key enforcement is disabled")
	}

	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}
	migrations, err := migrator.LoadMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}
	d.migrations = migrations

	return d, nil
}

func withPragma(path, pragma string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=" + pragma
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}
