package version

import (
	"fmt"
	"runtime"
)

// Build information, set via -ldflags "-X" at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo is reported by the health endpoint and logged at startup
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the release version, or dev-<short commit> for
// development builds
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	switch {
	case GitCommit == "" || GitCommit == "unknown":
		return "dev-unknown"
	case len(GitCommit) > 8:
		return fmt.Sprintf("dev-%s", GitCommit[:8])
	default:
		return fmt.Sprintf("dev-%s", GitCommit)
	}
}

// GetBuildInfo returns all build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}
