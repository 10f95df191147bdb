// Package version carries the build fingerprint of the litho CLI.
// All variables can be overridden at build time via -ldflags.
package version

import "github.com/fatih/color"

func seg(c color.Attribute, s string) string {
	return color.New(c, color.Bold).Sprint(s)
}

var (
	// Version is the semantic version of the CLI, each segment styled
	// for the terminal banner.
	Version = seg(color.FgCyan, "0") + "." + seg(color.FgMagenta, "2") + "." + seg(color.FgWhite, "0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)
