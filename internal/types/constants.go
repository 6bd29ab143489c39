// Package types provides type-safe constants shared by the update engine.
//
// This package centralizes the enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
package types

import (
	"fmt"
	"strings"
)

// ArchiveFormat represents the container format of a release bundle.
type ArchiveFormat string

const (
	// ArchiveZip is the zip format used for Windows bundles.
	ArchiveZip ArchiveFormat = "zip"
	// ArchiveTarGz is the gzip-compressed tarball used for Linux and macOS bundles.
	ArchiveTarGz ArchiveFormat = "tar.gz"
)

// AllArchiveFormats returns all valid archive formats.
func AllArchiveFormats() []ArchiveFormat {
	return []ArchiveFormat{ArchiveZip, ArchiveTarGz}
}

// Validate checks if the ArchiveFormat is a valid value.
func (f ArchiveFormat) Validate() error {
	switch f {
	case ArchiveZip, ArchiveTarGz:
		return nil
	case "":
		return fmt.Errorf("archive format is required")
	default:
		return fmt.Errorf("invalid archive format '%s' (must be zip or tar.gz)", f)
	}
}

// String returns the string representation of the ArchiveFormat.
func (f ArchiveFormat) String() string {
	return string(f)
}

// Extension returns the filename suffix for the format, including the dot.
func (f ArchiveFormat) Extension() string {
	return "." + string(f)
}

// ParseArchiveFormat parses a string into an ArchiveFormat.
// "tgz" is accepted as an alias for tar.gz.
func ParseArchiveFormat(s string) (ArchiveFormat, error) {
	s = strings.TrimPrefix(strings.ToLower(s), ".")
	if s == "tgz" {
		return ArchiveTarGz, nil
	}
	af := ArchiveFormat(s)
	if err := af.Validate(); err != nil {
		return "", err
	}
	return af, nil
}

// ArchiveFormatFromName detects the archive format from a bundle filename.
func ArchiveFormatFromName(name string) (ArchiveFormat, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return ArchiveZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return ArchiveTarGz, nil
	default:
		return "", fmt.Errorf("unsupported archive type: %s (expected .zip, .tar.gz or .tgz)", name)
	}
}

// LaunchMode is the role a process invocation plays, decided once from its arguments.
type LaunchMode int

const (
	// LaunchModeNormal is a regular application start (check for updates, then run).
	LaunchModeNormal LaunchMode = iota
	// LaunchModeApply is the helper role that swaps files and relaunches the target.
	LaunchModeApply
)

// String returns the string representation of the LaunchMode.
func (m LaunchMode) String() string {
	switch m {
	case LaunchModeNormal:
		return "normal"
	case LaunchModeApply:
		return "apply"
	default:
		return fmt.Sprintf("LaunchMode(%d)", int(m))
	}
}

// State is a step of the update state machine. It is used for logging and
// for observing transitions in tests.
type State string

const (
	StateIdle              State = "idle"
	StateCheckingForUpdate State = "checking-for-update"
	StateNoUpdateFound     State = "no-update-found"
	StateUpdateStaged      State = "update-staged"
	StateHelperSpawned     State = "helper-spawned"
	StateApplyModeEntered  State = "apply-mode-entered"
	StateRetrying          State = "retrying"
	StateSwapped           State = "swapped"
	StateRelaunched        State = "relaunched"
	StateGivingUp          State = "giving-up"
)

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the process is expected to exit after this state.
func (s State) IsTerminal() bool {
	switch s {
	case StateHelperSpawned, StateRelaunched, StateGivingUp:
		return true
	default:
		return false
	}
}
