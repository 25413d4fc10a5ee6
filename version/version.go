package version

// Version info injected via ldflags at build time
var (
	// Version is set via -ldflags "-X phosphor/version.Version=x.x.x"
	Version = "0.1.0"

	// CommitHash is set via -ldflags "-X phosphor/version.CommitHash=xxx"
	CommitHash = "unknown"

	// BuildTime is set via -ldflags "-X phosphor/version.BuildTime=xxx"
	BuildTime = "unknown"
)

// Info is the build metadata reported by the version endpoint.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit"`
	BuildTime  string `json:"buildTime"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, CommitHash: CommitHash, BuildTime: BuildTime}
}

// GetFullVersion returns the version including the short commit hash
func GetFullVersion() string {
	if CommitHash == "unknown" || len(CommitHash) < 7 {
		return Version
	}
	return Version + " (" + CommitHash[:7] + ")"
}

// GetBuildInfo returns build metadata
func GetBuildInfo() string {
	return "Phosphor " + GetFullVersion() + "\nCommit: " + CommitHash + "\nBuild Time: " + BuildTime
}
