// Package version holds the build version consumed by the CLI and server.
package version

import "fmt"

// Version is the semver release of the server.
var Version = "0.3.0"

// DevVersion is the development version string.
var DevVersion = fmt.Sprintf("%s-dev", Version)

// GetCurrentVersion returns the effective version for the given run mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" {
		return DevVersion
	}
	return Version
}
