// Package version holds build information injected through -ldflags.
package version

var (
	// Version is the semantic version (set via ldflags)
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash (set via ldflags)
	GitCommit = "unknown"

	// BuildTime is the build timestamp (set via ldflags)
	BuildTime = "unknown"
)

// Info returns a formatted version string, e.g. "v0.3.1 (a1b2c3d) built at 2026-01-01".
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}

// UserAgent is sent on every outbound HTTP request, e.g. "Koyomi/v0.3.1 (a1b2c3d)".
// The commit is left out while it is unknown.
func UserAgent() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return "Koyomi/" + Version
	}
	return "Koyomi/" + Version + " (" + GitCommit + ")"
}
