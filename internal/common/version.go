package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Version information (set via -ldflags during build)
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile reads version from a .version file next to the executable,
// falling back to the working directory. Returns the active version either way.
func LoadVersionFromFile() string {
	candidates := []string{}

	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), ".version"))
	}
	candidates = append(candidates, ".version")

	for _, versionFile := range candidates {
		data, err := os.ReadFile(versionFile)
		if err != nil {
			continue
		}
		if version := strings.TrimSpace(string(data)); version != "" {
			Version = version
			break
		}
	}

	return Version
}
