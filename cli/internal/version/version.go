package version

import (
	"fmt"
	"runtime"

	"github.com/baltrad/bdb-go/runtime/client"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version       string
	BuildDate     string
	GitCommit     string
	SchemaVersion string
	GoVersion     string
	Platform      string
}

// Get returns version information
func Get() Info {
	return Info{
		Version:       Version,
		BuildDate:     BuildDate,
		GitCommit:     GitCommit,
		SchemaVersion: client.SchemaVersion,
		GoVersion:     runtime.Version(),
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("bdb version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// Pairs returns the detailed fields in display order
func (i Info) Pairs() [][2]string {
	return [][2]string{
		{"Version", i.Version},
		{"Schema", i.SchemaVersion},
		{"Build Date", i.BuildDate},
		{"Git Commit", i.GitCommit},
		{"Platform", i.Platform},
		{"Go Version", i.GoVersion},
	}
}
