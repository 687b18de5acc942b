// Package version exposes the storecache binary version and the version of
// the durable blob layout written by the cache.
package version

import "github.com/Masterminds/semver/v3"

// FormatVersion is the layout version stamped into every persisted cache blob.
// Bump the major version when a change makes older blobs unreadable.
const FormatVersion = "1.0.0"

// version is set at build time via -ldflags "-X github.com/rshade/storecache/pkg/version.version=...".
//
//nolint:gochecknoglobals // Overwritten by the linker.
var version = "0.0.0-dev"

// GetVersion returns the binary version.
func GetVersion() string {
	return version
}

// Compatible reports whether a blob written with layout version v can be read
// by this build. Blobs are compatible when their major version matches
// FormatVersion. Unparseable versions are never compatible.
func Compatible(v string) bool {
	blob, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	current := semver.MustParse(FormatVersion)
	return blob.Major() == current.Major()
}
