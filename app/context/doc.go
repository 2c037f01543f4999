// Package context holds the state shared by the CLI commands: I/O streams,
// the logger, configuration and the database.
//
// It's separate from the app package so that cli can import it.
package context
