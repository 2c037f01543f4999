package migrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"time"

	"go.hackfix.me/strata/db/types"
)

// Direction is the direction in which migrations are run.
type Direction string

// Migration directions.
const (
	MigrationUp   Direction = "up"
	MigrationDown Direction = "down"
)

// Migration is a pair of SQL scripts that change the schema forward and back.
type Migration struct {
	ID   int
	Name string
	Up   string
	Down string
}

// String returns the migration ID and name.
func (m *Migration) String() string {
	return fmt.Sprintf("%04d-%s", m.ID, m.Name)
}

var fileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.(up|down)\.sql$`)

// LoadMigrations reads the migration files in the root of fsys. Files must be
// named "{id}-{name}.{up|down}.sql". The returned migrations are sorted by ID.
func LoadMigrations(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	byID := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := fileRx.FindStringSubmatch(e.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration file name '%s'", e.Name())
		}

		id, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration ID in '%s': %w", e.Name(), err)
		}
		m, ok := byID[id]
		if !ok {
			m = &Migration{ID: id, Name: match[2]}
			byID[id] = m
		} else if m.Name != match[2] {
			return nil, fmt.Errorf("conflicting names for migration %d: '%s' and '%s'", id, m.Name, match[2])
		}

		data, err := fs.ReadFile(fsys, path.Clean(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", e.Name(), err)
		}
		if Direction(match[3]) == MigrationUp {
			m.Up = string(data)
		} else {
			m.Down = string(data)
		}
	}

	migrations := make([]*Migration, 0, len(byID))
	for _, m := range byID {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up script", m)
		}
		migrations = append(migrations, m)
	}
	slices.SortFunc(migrations, func(a, b *Migration) int { return a.ID - b.ID })

	return migrations, nil
}

// RunMigrations applies migrations in direction until the migration named to
// is reached, or all of them if to is "all". Migrations that are already in
// the target state are skipped.
func RunMigrations(
	d types.Querier, migrations []*Migration, dir Direction, to string, logger *slog.Logger,
) error {
	ctx := d.NewContext()
	if err := createHistoryTable(ctx, d); err != nil {
		return err
	}

	applied, err := appliedIDs(ctx, d)
	if err != nil {
		return err
	}

	plan := slices.Clone(migrations)
	if dir == MigrationDown {
		slices.Reverse(plan)
	}

	found := to == "all"
	for _, m := range plan {
		_, isApplied := applied[m.ID]
		mlogger := logger.With("migration", m.String(), "direction", string(dir))

		ran := true
		switch {
		case dir == MigrationUp && !isApplied:
			if err = exec(ctx, d, m, m.Up); err != nil {
				return err
			}
			_, err = d.ExecContext(ctx,
				`INSERT INTO _migrations (id, name, applied_at) VALUES (?, ?, ?)`,
				m.ID, m.Name, d.TimeNow().UTC())
		case dir == MigrationDown && isApplied:
			if err = exec(ctx, d, m, m.Down); err != nil {
				return err
			}
			_, err = d.ExecContext(ctx, `DELETE FROM _migrations WHERE id = ?`, m.ID)
		default:
			ran = false
		}
		if err != nil {
			return fmt.Errorf("failed updating migration history for %s: %w", m, err)
		}
		if ran {
			mlogger.Debug("ran migration")
		}

		if m.Name == to || m.String() == to {
			found = true
			break
		}
	}

	if !found {
		return fmt.Errorf("migration '%s' not found", to)
	}

	return nil
}

func exec(ctx context.Context, d types.Querier, m *Migration, script string) error {
	if script == "" {
		return fmt.Errorf("migration %s has no script to run", m)
	}
	if _, err := d.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed running migration %s: %w", m, err)
	}
	return nil
}

func createHistoryTable(ctx context.Context, d types.Querier) error {
	_, err := d.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed creating migration history table: %w", err)
	}
	return nil
}

func appliedIDs(ctx context.Context, d types.Querier) (ids map[int]time.Time, rerr error) {
	rows, err := d.QueryContext(ctx, `SELECT id, applied_at FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed loading migration history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			rerr = errors.Join(rerr, fmt.Errorf("failed closing migration rows: %w", err))
		}
	}()

	ids = map[int]time.Time{}
	for rows.Next() {
		var (
			id int
			at time.Time
		)
		if err = rows.Scan(&id, &at); err != nil {
			return nil, types.ScanError{ModelName: "migration", Err: err}
		}
		ids[id] = at
	}

	return ids, rows.Err()
}
