// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the platform enumeration and the injected host facts.
package nwota

import (
	"fmt"
	"os"
	"runtime"
)

// Platform identifies one of the supported host platforms. Together with the
// project key and the application version it addresses exactly one update
// channel.
type Platform string

const (
	// PlatformWin is Windows (32- and 64-bit share one channel).
	PlatformWin Platform = "win"

	// PlatformMac is macOS.
	PlatformMac Platform = "mac"

	// PlatformLinux32 is 32-bit Linux.
	PlatformLinux32 Platform = "linux32"

	// PlatformLinux64 is 64-bit Linux.
	PlatformLinux64 Platform = "linux64"
)

// ReservedBundleDir is the bundle directory name that Windows refuses to
// delete while the NW.js runtime executes from it, even though its contents
// can be replaced. The replacement engine clears such a directory instead of
// removing it.
const ReservedBundleDir = "package.nw"

// Valid reports whether p is one of the supported platform tags.
func (p Platform) Valid() bool {
	switch p {
	case PlatformWin, PlatformMac, PlatformLinux32, PlatformLinux64:
		return true
	}
	return false
}

// String returns the wire form of the platform tag.
func (p Platform) String() string {
	return string(p)
}

// locksBundleDir reports whether the platform holds a lock on the reserved
// bundle directory itself (not just the files inside it) while the host
// runtime is running.
func (p Platform) locksBundleDir() bool {
	return p == PlatformWin
}

// ParsePlatform converts a string into a Platform, rejecting unknown tags.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
	return p, nil
}

// CurrentPlatform derives the platform tag for the process's own OS and
// architecture. Useful as a default when the host runtime does not inject
// one explicitly.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWin
	case "darwin":
		return PlatformMac
	default:
		if runtime.GOARCH == "386" || runtime.GOARCH == "arm" {
			return PlatformLinux32
		}
		return PlatformLinux64
	}
}

// PlatformInfo provides the host facts the update flow depends on. It is an
// injected dependency rather than an ambient global so the selector and
// orchestrator stay testable without a host runtime.
type PlatformInfo interface {
	// Platform returns the platform tag of the running host.
	Platform() Platform

	// AppVersion returns the application's own semantic version string,
	// independent of the OTA version tracked by this system.
	AppVersion() string
}

// StaticPlatformInfo is a PlatformInfo with fixed values.
type StaticPlatformInfo struct {
	Plat    Platform
	Version string
}

// Platform implements PlatformInfo.
func (s StaticPlatformInfo) Platform() Platform { return s.Plat }

// AppVersion implements PlatformInfo.
func (s StaticPlatformInfo) AppVersion() string { return s.Version }

// DefaultAppVersion is the terminal fallback when no version source resolves.
const DefaultAppVersion = "0.0.0"

// VersionSource yields an application version string, or reports that it has
// none. Sources are tried in order by ResolveAppVersion, which makes the
// precedence between "the field the app sets", "the legacy field" and "the
// hardcoded default" auditable instead of a dynamic fallback chain.
type VersionSource interface {
	// Name identifies the source for diagnostics.
	Name() string

	// Version returns the version string and true, or "" and false when the
	// source has nothing to offer.
	Version() (string, bool)
}

// ResolveAppVersion returns the version from the first source that yields
// one, falling back to DefaultAppVersion when none does.
func ResolveAppVersion(sources ...VersionSource) string {
	for _, src := range sources {
		if v, ok := src.Version(); ok && v != "" {
			return v
		}
	}
	return DefaultAppVersion
}

// StaticVersionSource always yields a fixed version. An empty value means
// "absent", which lets callers wire optional configuration into the chain.
type StaticVersionSource struct {
	Source string
	Value  string
}

// Name implements VersionSource.
func (s StaticVersionSource) Name() string { return s.Source }

// Version implements VersionSource.
func (s StaticVersionSource) Version() (string, bool) {
	return s.Value, s.Value != ""
}

// EnvVersionSource reads the version from an environment variable.
type EnvVersionSource struct {
	Key string
}

// Name implements VersionSource.
func (e EnvVersionSource) Name() string { return "env:" + e.Key }

// Version implements VersionSource.
func (e EnvVersionSource) Version() (string, bool) {
	v := os.Getenv(e.Key)
	return v, v != ""
}
