package context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/strata/app/config"
	"go.hackfix.me/strata/db"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx     context.Context  // global context
	FS      vfs.FileSystem   // filesystem
	Logger  *slog.Logger     // global logger
	TimeNow func() time.Time // current time
	Config  *config.Config
	DB      *db.DB

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Metadata
	Version     *VersionInfo
	VersionInit string // app version the database was initialized with
}
