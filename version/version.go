package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/RyanBlaney/sonido-stft/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Commit returns GitCommit, falling back to the VCS revision stamped by the
// go toolchain
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return GitCommit
}

func GetVersionInfo() string {
	return fmt.Sprintf("sonido-stft version %s (commit: %s, built: %s, go: %s)",
		Version, Commit(), BuildTime, runtime.Version())
}
