package version

import "fmt"

var (
	// Version is set at compile time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Returns the full version string for -version output
func String() string {
	return fmt.Sprintf("logrelay %s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// Returns just the version tag, used in the outbound User-Agent
func Short() string {
	return Version
}
