package update

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsNewer reports whether latest should be offered over current. Versions
// that both parse as semver are compared; anything else is treated as newer
// whenever the strings differ, since mod authors use free-form versions.
func IsNewer(current, latest string) bool {
	current = strings.TrimSpace(current)
	latest = strings.TrimSpace(latest)
	if latest == "" {
		return false
	}

	cv, cerr := parseSemver(current)
	lv, lerr := parseSemver(latest)
	if cerr == nil && lerr == nil {
		return cv.LessThan(lv)
	}
	return current != latest
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimPrefix(version, "v"), "V")
	return semver.NewVersion(version)
}
