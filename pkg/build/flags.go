// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for the render binary. The application name, build timestamp, Git commit hash
// and semantic version are embedded at compile time using linker flags:
//
//	go build -ldflags "-X render/pkg/build.buildName=render -X render/pkg/build.buildVersion=0.1.0"
package build

import (
	"errors"
	"fmt"
)

// ErrMissingFlags is returned by Initialize when the binary was built
// without the ldflags that identify it (a development build).
var ErrMissingFlags = errors.New("build flags not set")

// Info holds build-time information injected during compilation.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String renders the info for `--version` output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:    "render",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// Initialize copies the ldflags variables into the package build info. Any
// flag that was not provided keeps its development default; in that case
// ErrMissingFlags is returned, naming the first missing flag, and callers
// may carry on with the defaults.
func Initialize() error {
	info := defaultInfo()
	var missing []string

	set := func(dst *string, value, flag string) {
		if value == "" {
			missing = append(missing, flag)
			return
		}
		*dst = value
	}
	set(&info.Name, buildName, "BuildName")
	set(&info.Time, buildTime, "BuildTime")
	set(&info.Commit, buildCommit, "BuildCommit")
	set(&info.Version, buildVersion, "BuildVersion")

	buildInfo = info
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s is required", ErrMissingFlags, missing[0])
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() Info {
	return buildInfo
}
