package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

var fillOnce sync.Once

// fill replaces unset values with what the Go toolchain embedded.
func fill() {
	fillOnce.Do(func() {
		if GoVersion == "unknown" {
			GoVersion = runtime.Version()
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "unknown" && s.Value != "" {
					Commit = s.Value
					if len(Commit) > 12 {
						Commit = Commit[:12]
					}
				}
			case "vcs.time":
				if BuildTime == "unknown" && s.Value != "" {
					BuildTime = s.Value
				}
			}
		}
	})
}

// Get returns the build information.
func Get() Info {
	fill()
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
	}
}

// String returns a formatted version string.
func String() string {
	fill()
	return Version + " (" + Commit + ") built at " + BuildTime
}

// LogAttrs returns the build fields as alternating key/value pairs for slog.
func LogAttrs() []any {
	i := Get()
	return []any{"version", i.Version, "commit", i.Commit, "build_time", i.BuildTime, "go_version", i.GoVersion}
}
