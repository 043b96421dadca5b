// Package version reports the katsite build version.
package version

import "runtime/debug"

// Version is set at build time:
// go build -ldflags "-X github.com/katattakd/katsite/internal/version.Version=v1.0.0".
// When unset, the module version recorded by `go install` is used.
var Version = "unknown"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	apply(info)
}

// apply fills values left unset by ldflags from the embedded build info.
func apply(info *debug.BuildInfo) {
	if Version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "unknown" && s.Value != "" {
				GitCommit = s.Value
				if len(GitCommit) > 12 {
					GitCommit = GitCommit[:12]
				}
			}
		case "vcs.time":
			if BuildTime == "unknown" && s.Value != "" {
				BuildTime = s.Value
			}
		}
	}
}

// String renders the version line printed by --version.
func String() string {
	return "katsite " + Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
