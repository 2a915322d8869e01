package buildinfo

import "fmt"

// Set via -ldflags at build time:
//
//	-X 'github.com/anpruch/clubbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/anpruch/clubbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/anpruch/clubbot/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a one-line build description for diagnostics.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
