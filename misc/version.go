// Package misc provides version information for program builds.
package misc

import (
	"runtime/debug"
)

// set by the linker during official builds
var (
	version = "development"
	gitHash = ""
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns hash of the git commit program was built from.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
