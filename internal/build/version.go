package build

// Set at link time, e.g.
// -ldflags "-X github.com/rohmanhakim/silent-crawler/internal/build.Version=1.0.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// Info returns the full version followed by the build time, as printed by --version.
func Info() string {
	return FullVersion() + " (built " + BuildTime + ")"
}
