//nolint:gochecknoglobals // allow global variables
package config

var (
	// Version is the xdb-explorer version number, which is injected during build time.
	Version = "0.0.0"

	// CommitHash is the xdb-explorer git commit hash, which is injected during build time.
	CommitHash = ""

	// BuildTimestamp is the timestamp at which the xdb-explorer was built, injected during build time.
	BuildTimestamp = ""
)
