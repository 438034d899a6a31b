// Package version holds build information for the reflex command.
// The variables are overridden at build time via -ldflags.
package version

import (
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the command.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Semver parses Version.
func Semver() (*semver.Version, error) {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("invalid build version %q: %w", Version, err)
	}
	return v, nil
}

// Pretty renders Version with colored components. Unparseable versions are
// returned unchanged.
func Pretty() string {
	v, err := Semver()
	if err != nil {
		return Version
	}
	out := majorColor.Sprint(strconv.FormatUint(v.Major(), 10)) + "." +
		minorColor.Sprint(strconv.FormatUint(v.Minor(), 10)) + "." +
		patchColor.Sprint(strconv.FormatUint(v.Patch(), 10))
	if pre := v.Prerelease(); pre != "" {
		out += "-" + pre
	}
	if md := v.Metadata(); md != "" {
		out += "+" + md
	}
	return out
}
