package context

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Version is the semantic version of the application, set at build time with
// -ldflags "-X go.hackfix.me/strata/app/context.Version=...".
var Version = "v0.0.0-dev"

// VersionInfo describes the build of the application.
type VersionInfo struct {
	Semantic  string
	Commit    string
	GoVersion string
	Modified  bool
}

// String returns the version in a format suitable for `--version` output.
func (v *VersionInfo) String() string {
	s := v.Semantic
	if v.Commit != "" {
		commit := v.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		s = fmt.Sprintf("%s (%s", s, commit)
		if v.Modified {
			s += "-dirty"
		}
		s += ")"
	}
	if v.GoVersion != "" {
		s = fmt.Sprintf("%s, %s", s, v.GoVersion)
	}

	return s
}

// GetVersion returns the version of the application, along with the VCS
// information embedded by the Go toolchain.
func GetVersion() (*VersionInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed reading build information")
	}

	vi := &VersionInfo{Semantic: Version, GoVersion: bi.GoVersion}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			vi.Commit = s.Value
		case "vcs.modified":
			vi.Modified = s.Value == "true"
		}
	}

	return vi, nil
}
