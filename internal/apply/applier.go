package apply

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
)

// Defaults for the swap retry loop. They only need to cover the time the OS
// takes to release the exiting parent's executable.
const (
	DefaultAttempts = 30
	DefaultInterval = 250 * time.Millisecond
)

const stagingPattern = ".twitchdesk-staging-*"

// Options configures an Applier. Zero values select the defaults.
type Options struct {
	Attempts int
	Interval time.Duration
	Logger   *log.Logger
	Launcher Launcher

	// GOOS selects bundle member names; defaults to runtime.GOOS.
	GOOS string

	// Sleep and Swap are replaceable for tests.
	Sleep func(time.Duration)
	Swap  func([]Unit) error

	// OnState observes state transitions with the current attempt number.
	OnState func(state types.State, attempt int)
}

// Outcome is how an apply run ended.
type Outcome struct {
	State    types.State
	Attempts int
	Err      error
}

// ExitCode is the helper's process exit status. Only a failed relaunch after
// a successful swap is reported as a failure.
func (o Outcome) ExitCode() int {
	if o.State == types.StateSwapped && o.Err != nil {
		return 1
	}
	return 0
}

// Applier drives stage, swap and relaunch inside the helper process.
type Applier struct {
	attempts int
	interval time.Duration
	logger   *log.Logger
	launcher Launcher
	goos     string
	sleep    func(time.Duration)
	swap     func([]Unit) error
	onState  func(types.State, int)
}

// NewApplier creates an Applier from opts.
func NewApplier(opts Options) *Applier {
	a := &Applier{
		attempts: opts.Attempts,
		interval: opts.Interval,
		logger:   opts.Logger,
		launcher: opts.Launcher,
		goos:     opts.GOOS,
		sleep:    opts.Sleep,
		swap:     opts.Swap,
		onState:  opts.OnState,
	}
	if a.attempts <= 0 {
		a.attempts = DefaultAttempts
	}
	if a.interval <= 0 {
		a.interval = DefaultInterval
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	if a.launcher == nil {
		a.launcher = ProcessLauncher{}
	}
	if a.goos == "" {
		a.goos = runtime.GOOS
	}
	if a.sleep == nil {
		a.sleep = time.Sleep
	}
	if a.swap == nil {
		a.swap = SwapAll
	}
	return a
}

// Run applies the bundle named by inv and relaunches the target. Extraction
// failures abort without touching the installation; swap failures are retried
// up to the attempt bound and then abandoned, leaving the old version in place.
func (a *Applier) Run(inv *Invocation) Outcome {
	a.transition(types.StateApplyModeEntered, 0)
	a.logger.Info("applying update", "bundle", inv.BundlePath, "target", inv.TargetExe)

	staged, err := a.stage(inv)
	if err != nil {
		a.logger.Error("failed to stage update; installation left untouched", "err", err)
		a.transition(types.StateGivingUp, 0)
		return Outcome{State: types.StateGivingUp, Err: err}
	}

	attempt := 1
	for {
		a.transition(types.StateRetrying, attempt)

		err = a.swap(a.units(inv, staged))
		_ = os.RemoveAll(staged.Dir)
		if err == nil {
			break
		}

		a.logger.Debug("swap attempt failed", "attempt", attempt, "locked", IsLocked(err), "err", err)
		if attempt >= a.attempts {
			a.logger.Warn("failed to apply update after retries; continuing without updating",
				"attempts", attempt, "err", err)
			a.transition(types.StateGivingUp, attempt)
			return Outcome{State: types.StateGivingUp, Attempts: attempt, Err: err}
		}

		a.sleep(a.interval)
		attempt++

		staged, err = a.stage(inv)
		if err != nil {
			a.logger.Error("failed to re-stage update", "attempt", attempt, "err", err)
			a.transition(types.StateGivingUp, attempt)
			return Outcome{State: types.StateGivingUp, Attempts: attempt, Err: err}
		}
	}

	a.transition(types.StateSwapped, attempt)
	a.logger.Info("update applied", "attempts", attempt)

	if err := a.launcher.Start(inv.TargetExe, inv.RelaunchArgs); err != nil {
		a.logger.Error("update applied but relaunch failed; start the application manually",
			"target", inv.TargetExe, "err", err)
		return Outcome{State: types.StateSwapped, Attempts: attempt, Err: err}
	}

	a.transition(types.StateRelaunched, attempt)
	return Outcome{State: types.StateRelaunched, Attempts: attempt}
}

// stage extracts the bundle into a fresh scratch directory next to the
// target, so every rename stays on one filesystem.
func (a *Applier) stage(inv *Invocation) (*ExtractResult, error) {
	dir, err := os.MkdirTemp(filepath.Dir(inv.TargetExe), stagingPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	result, err := Extract(inv.BundlePath, dir, RequiredMembers(a.goos))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return result, nil
}

// units maps the bundle's executables onto the installation: the main
// executable replaces the target, the preview renderer its sibling.
func (a *Applier) units(inv *Invocation, staged *ExtractResult) []Unit {
	members := RequiredMembers(a.goos)
	return []Unit{
		{Target: inv.TargetExe, Replacement: staged.Path(members[0])},
		{Target: filepath.Join(filepath.Dir(inv.TargetExe), members[1]), Replacement: staged.Path(members[1])},
	}
}

func (a *Applier) transition(state types.State, attempt int) {
	if a.onState != nil {
		a.onState(state, attempt)
	}
}
