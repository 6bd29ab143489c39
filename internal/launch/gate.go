package launch

import (
	"strings"

	"github.com/twitchdesk/twitchdesk-desktop/internal/apply"
)

// DevVersion is the version stamped into builds made without -ldflags.
const DevVersion = "dev"

// Gate decides whether a normal startup should check for updates.
type Gate struct {
	DevBuild bool
	Disabled bool
	SkipOnce bool
}

// NewGate builds the gate for a process. disabled is the merged config file
// and environment setting.
func NewGate(version string, disabled bool, args []string) Gate {
	return Gate{
		DevBuild: IsDevBuild(version),
		Disabled: disabled,
		SkipOnce: apply.HasSkipUpdate(args),
	}
}

// IsDevBuild reports whether version is the unstamped development version.
func IsDevBuild(version string) bool {
	v := strings.TrimSpace(version)
	return v == "" || v == DevVersion
}

// ShouldCheck reports whether the update check may run.
func (g Gate) ShouldCheck() bool {
	return !g.DevBuild && !g.Disabled && !g.SkipOnce
}

// Reason explains why the check is skipped, or returns "" when it is not.
func (g Gate) Reason() string {
	switch {
	case g.DevBuild:
		return "development build"
	case g.Disabled:
		return "updates disabled"
	case g.SkipOnce:
		return "skipped for this launch"
	default:
		return ""
	}
}
