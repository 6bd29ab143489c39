package update

import (
	"fmt"
	"runtime"
)

// AppName is the base name of the main application executable and of the
// release bundles.
const AppName = "twitchdesk-desktop"

// Platform describes the current system platform
type Platform struct {
	OS   string // Go operating system identifier (darwin, linux, windows)
	Arch string // Go architecture identifier (amd64, arm64)
}

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

var osTokens = map[string]string{
	"darwin":  "macos",
	"linux":   "linux",
	"windows": "windows",
}

var archTokens = map[string]string{
	"amd64": "x86_64",
	"arm64": "aarch64",
}

// OSToken returns the OS token used in release asset names.
// Unknown identifiers pass through unchanged.
func (p Platform) OSToken() string {
	if t, ok := osTokens[p.OS]; ok {
		return t
	}
	return p.OS
}

// ArchToken returns the architecture token used in release asset names.
func (p Platform) ArchToken() string {
	if t, ok := archTokens[p.Arch]; ok {
		return t
	}
	return p.Arch
}

// ArchiveExtension is ".zip" on Windows and ".tar.gz" elsewhere
func (p Platform) ArchiveExtension() string {
	if p.OS == "windows" {
		return ".zip"
	}
	return ".tar.gz"
}

// AssetName returns the release bundle name for this platform
// e.g., "twitchdesk-desktop-macos-aarch64.tar.gz"
func (p Platform) AssetName() string {
	return fmt.Sprintf("%s-%s-%s%s", AppName, p.OSToken(), p.ArchToken(), p.ArchiveExtension())
}

// ExecutableName appends ".exe" to base on Windows
func (p Platform) ExecutableName(base string) string {
	if p.OS == "windows" {
		return base + ".exe"
	}
	return base
}

// IsSupported returns true if release bundles are published for this platform
func (p Platform) IsSupported() bool {
	supportedPlatforms := map[string][]string{
		"darwin":  {"amd64", "arm64"},
		"linux":   {"amd64", "arm64"},
		"windows": {"amd64"},
	}

	archs, ok := supportedPlatforms[p.OS]
	if !ok {
		return false
	}

	for _, arch := range archs {
		if p.Arch == arch {
			return true
		}
	}

	return false
}
