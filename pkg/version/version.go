// Package version carries the build identity of the streamgate binary.
//
// The variables are injected by the linker:
//
//	go build -ldflags "-X github.com/streamgate/streamgate/pkg/version.Version=v1.0.0 \
//	  -X github.com/streamgate/streamgate/pkg/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/streamgate/streamgate/pkg/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info bundles the build identity for structured CLI output.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build identity including toolchain and platform.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("streamgate %s (commit: %s, built: %s)", Version, Commit, Date)
}
