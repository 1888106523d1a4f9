// pkg/version/version.go - build version metadata.

package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags.
var (
	appName   = "prospect"
	version   = "0.0.0-dev"
	branch    = "unknown"
	revision  = "unknown"
	buildDate = "unknown"
)

// Version returns the semantic version string.
func Version() string {
	return version
}

// Print writes the build information to stdout.
func Print() {
	fmt.Printf("%s %s\n", appName, version)
	fmt.Printf("  branch:     %s\n", branch)
	fmt.Printf("  revision:   %s\n", revision)
	fmt.Printf("  build date: %s\n", buildDate)
	fmt.Printf("  go:         %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
