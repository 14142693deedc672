// Package version contains the build information of adfilter.  The values are
// set by the linker, for example:
//
//	go build -ldflags '-X github.com/fcchbjm/adfilter/internal/version.version=v0.1.0'
package version

import "strings"

// devVersion is reported by the builds without a version set.
const devVersion = "dev"

// Set by the linker.  Go doesn't allow setting constants during linking, so
// they're only exported through getters.
var (
	branch     string
	committime string
	revision   string
	version    string
)

// Branch returns the Git branch of the build.
func Branch() (b string) {
	return branch
}

// CommitTime returns the time of the built commit as a string.
func CommitTime() (t string) {
	return committime
}

// Revision returns the Git revision of the build.
func Revision() (r string) {
	return revision
}

// Version returns the version of the build or "dev" if it isn't set.
func Version() (v string) {
	if version == "" {
		return devVersion
	}

	return version
}

// Full returns the version followed by the revision and the branch, if they
// are set, e.g. "v0.1.0 (abcdef0, master)".
func Full() (s string) {
	var details []string
	for _, d := range []string{revision, branch} {
		if d != "" {
			details = append(details, d)
		}
	}

	if len(details) == 0 {
		return Version()
	}

	return Version() + " (" + strings.Join(details, ", ") + ")"
}
