// Package migrator applies and rolls back the SQL schema migrations of the
// database.
//
// Migrations are loaded from pairs of files named {id}-{name}.up.sql and
// {id}-{name}.down.sql. Applied migrations are recorded in the _migrations
// table, which is also used to skip or revert them on later runs.
package migrator
