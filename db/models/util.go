package models

import (
	"context"
	"database/sql"
	"fmt"

	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/types"
)

func filterCount(ctx context.Context, d types.Querier, table string, filter *crud.Query) (int, error) {
	where, args := whereClause(filter)
	countQ := fmt.Sprintf(`SELECT COUNT(*) FROM "%s" %s`, table, where)
	var count int
	err := d.QueryRowContext(ctx, countQ, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed scanning %s count query: %w", table, err)
	}

	return count, nil
}

// whereClause renders the WHERE clause of filter, which may be nil.
func whereClause(filter *crud.Query) (string, []any) {
	if filter == nil || filter.Where == "" {
		return "", nil
	}
	return fmt.Sprintf("WHERE %s", filter.Where), filter.Args
}

// pageClause renders the LIMIT and OFFSET clauses of filter, which may be nil.
func pageClause(filter *crud.Query) string {
	if filter == nil || (filter.Limit == 0 && filter.Offset == 0) {
		return ""
	}
	limit := filter.Limit
	if limit == 0 {
		limit = -1
	}
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, filter.Offset)
}

func lastInsertID(result sql.Result) (uint64, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if id < 0 {
		return 0, fmt.Errorf("invalid negative ID from database: %d", id)
	}

	return uint64(id), nil
}

func checkAffected(res sql.Result, modelName, filterStr string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	}
	if n == 0 {
		return types.NoResultError{ModelName: modelName, ID: filterStr}
	}
	if n > 1 {
		return types.IntegrityError{Msg: fmt.Sprintf("affected %d %s records", n, modelName)}
	}

	return nil
}

// lookup returns the filter selecting a record by ID or name, and its
// description for errors.
func lookup(prefix string, id uint64, name string) (*crud.Query, string, bool) {
	switch {
	case id != 0:
		return crud.NewQuery(prefix+"id = ?", id), fmt.Sprintf("ID %d", id), true
	case name != "":
		return crud.NewQuery(prefix+"name = ?", name), fmt.Sprintf("name '%s'", name), true
	default:
		return nil, "", false
	}
}
