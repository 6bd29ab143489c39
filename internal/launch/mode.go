// Package launch decides what a process invocation is for and runs the
// normal-startup half of the update flow: gate, check, download, hand off to
// the helper.
package launch

import (
	"github.com/twitchdesk/twitchdesk-desktop/internal/apply"
	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
)

// Decision is the launch mode derived from the raw process arguments.
type Decision struct {
	Mode       types.LaunchMode
	Invocation *apply.Invocation
}

// Decide inspects args (without the program name) before any other parsing.
// A malformed apply invocation still yields LaunchModeApply together with the
// parse error, so the caller can log it and exit instead of starting the app.
func Decide(args []string, self string) (Decision, error) {
	if !apply.HasApplyMarker(args) {
		return Decision{Mode: types.LaunchModeNormal}, nil
	}

	inv, err := apply.ParseInvocation(args, self)
	if err != nil {
		return Decision{Mode: types.LaunchModeApply}, err
	}
	return Decision{Mode: types.LaunchModeApply, Invocation: inv}, nil
}
