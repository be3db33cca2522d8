// Package version carries build information, set through -ldflags -X.
package version //nolint:revive // package name intentionally matches build-info convention

import "fmt"

//nolint:gochecknoglobals //version information is set at build time
var (
	Repository = "github.com/pitabwire/fluent"
	Version    = "dev"
	Commit     string
	Date       string
)

// String describes the build in one line.
func String() string {
	s := fmt.Sprintf("%s %s", Repository, Version)
	if Commit != "" {
		s += " (" + Commit
		if Date != "" {
			s += ", " + Date
		}
		s += ")"
	}
	return s
}
