package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/twitchdesk/twitchdesk-desktop/internal/apply"
	"github.com/twitchdesk/twitchdesk-desktop/internal/cache"
	"github.com/twitchdesk/twitchdesk-desktop/internal/config"
	"github.com/twitchdesk/twitchdesk-desktop/internal/launch"
	"github.com/twitchdesk/twitchdesk-desktop/internal/logging"
	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
)

// applyLogName is the helper's log file inside the cache helper directory.
const applyLogName = "apply.log"

// runApply is the helper process. It runs regardless of whether update checks
// are disabled, since the parent has already exited expecting it to finish.
// Only a relaunch failure after a completed swap is returned as an error.
func runApply(decision launch.Decision, parseErr error) error {
	cfg, _, cfgErr := config.Resolve("")
	if cfgErr != nil {
		cfg = config.Default()
	}

	logger, closeLog := newApplyLogger(cfg)
	defer closeLog()

	if cfgErr != nil {
		logger.Warn("ignoring updater config", "err", cfgErr)
	}
	if parseErr != nil {
		logger.Error("invalid apply-update invocation; nothing to do", "err", parseErr)
		return nil
	}

	applier := apply.NewApplier(apply.Options{
		Attempts: cfg.RetryAttempts,
		Interval: cfg.RetryInterval(),
		Logger:   logger,
		OnState: func(state types.State, attempt int) {
			logger.Debug("apply state", "state", state, "attempt", attempt)
		},
	})

	outcome := applier.Run(decision.Invocation)
	if outcome.ExitCode() != 0 {
		return fmt.Errorf("update applied but relaunch failed: %w", outcome.Err)
	}
	return nil
}

// newApplyLogger logs to stderr and, when the cache is writable, to
// apply.log, since a helper started by a GUI has no visible console.
func newApplyLogger(cfg *config.Config) (*log.Logger, func()) {
	level := cfg.LogLevel
	fallback := func() (*log.Logger, func()) {
		return logging.New(os.Stderr, level), func() {}
	}

	mgr, err := cache.NewManager()
	if err != nil {
		return fallback()
	}
	if err := os.MkdirAll(mgr.HelperDir(), 0o755); err != nil {
		return fallback()
	}

	f, err := os.OpenFile(filepath.Join(mgr.HelperDir(), applyLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fallback()
	}

	return logging.New(io.MultiWriter(os.Stderr, f), level), func() { _ = f.Close() }
}
