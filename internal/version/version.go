// Package version holds build metadata for the resumatch binary.
package version

//nolint:revive // Overwritten via ldflags at release build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
