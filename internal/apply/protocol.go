// Package apply implements the helper-process side of a self-update: the
// argument protocol between the two process generations, bundle extraction,
// the rename-based file swap and the bounded retry loop that relaunches the
// updated application.
package apply

import (
	"errors"
	"fmt"
	"strings"
)

// Process arguments exchanged between the original process and the helper.
const (
	FlagApplyUpdate = "--apply-update"
	FlagTargetExe   = "--target-exe"
	FlagSkipUpdate  = "--skip-update"
	ArgSeparator    = "--"
)

// Executable base names shipped in every bundle.
const (
	MainExecutable    = "twitchdesk-desktop"
	PreviewExecutable = "twitchdesk-preview"
	HelperExecutable  = "twitchdesk-desktop-updater"
)

// ErrNoApplyMarker is returned when the arguments do not request apply mode.
var ErrNoApplyMarker = errors.New("no " + FlagApplyUpdate + " argument")

// Invocation is what a helper process was asked to do.
type Invocation struct {
	BundlePath   string
	TargetExe    string
	RelaunchArgs []string
}

// splitAtSeparator returns the arguments before the first "--" and the ones
// after it. ok is false when there is no separator.
func splitAtSeparator(args []string) (head, tail []string, ok bool) {
	for i, a := range args {
		if a == ArgSeparator {
			return args[:i], args[i+1:], true
		}
	}
	return args, nil, false
}

// HasApplyMarker reports whether args request apply mode. Only arguments
// before the first "--" are considered, so forwarded user arguments can never
// switch a relaunched instance into apply mode.
func HasApplyMarker(args []string) bool {
	head, _, _ := splitAtSeparator(args)
	for _, a := range head {
		if a == FlagApplyUpdate || strings.HasPrefix(a, FlagApplyUpdate+"=") {
			return true
		}
	}
	return false
}

// HasSkipUpdate reports whether the one-shot skip flag is present anywhere in
// args. The helper appends it after forwarded arguments, which may themselves
// contain "--".
func HasSkipUpdate(args []string) bool {
	for _, a := range args {
		if a == FlagSkipUpdate {
			return true
		}
	}
	return false
}

// ParseInvocation parses process arguments (without the program name).
// When --target-exe is absent the target defaults to self.
func ParseInvocation(args []string, self string) (*Invocation, error) {
	head, tail, _ := splitAtSeparator(args)

	inv := &Invocation{RelaunchArgs: append([]string{}, tail...)}
	marked := false

	for i := 0; i < len(head); i++ {
		name, value, hasValue := strings.Cut(head[i], "=")
		if name != FlagApplyUpdate && name != FlagTargetExe {
			continue
		}
		if !hasValue {
			if i+1 >= len(head) {
				return nil, fmt.Errorf("missing path after %s", name)
			}
			i++
			value = head[i]
		}
		if value == "" {
			return nil, fmt.Errorf("empty path for %s", name)
		}

		switch name {
		case FlagApplyUpdate:
			inv.BundlePath = value
			marked = true
		case FlagTargetExe:
			inv.TargetExe = value
		}
	}

	if !marked {
		return nil, ErrNoApplyMarker
	}
	if inv.TargetExe == "" {
		inv.TargetExe = self
	}

	return inv, nil
}

// Args renders the invocation back into helper process arguments
func (inv *Invocation) Args() []string {
	args := []string{FlagApplyUpdate, inv.BundlePath, FlagTargetExe, inv.TargetExe, ArgSeparator}
	return append(args, inv.RelaunchArgs...)
}

// NewInvocation builds the helper invocation for a staged bundle. The original
// arguments are forwarded in order with the skip flag appended once, so the
// relaunched instance does not immediately check again.
func NewInvocation(bundlePath, targetExe string, originalArgs []string) *Invocation {
	relaunch := append([]string{}, originalArgs...)
	if !HasSkipUpdate(relaunch) {
		relaunch = append(relaunch, FlagSkipUpdate)
	}
	return &Invocation{
		BundlePath:   bundlePath,
		TargetExe:    targetExe,
		RelaunchArgs: relaunch,
	}
}
