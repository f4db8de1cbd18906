package internal

import "fmt"

var (
	commitVersion string = "v0.1.0" // Updated when building using -ldflags
	commitDate    string            // commitDate in Epoch seconds (inserted using -ldflags)
)

// GetVersion returns the version and commit date of the build.
func GetVersion() string {
	if commitDate == "" {
		return commitVersion
	}
	return fmt.Sprintf("%s, date: %s", commitVersion, commitDate)
}
