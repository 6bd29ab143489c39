package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/twitchdesk/twitchdesk-desktop/internal/config"
	"github.com/twitchdesk/twitchdesk-desktop/internal/launch"
	"github.com/twitchdesk/twitchdesk-desktop/internal/update"
)

// runApp is a normal application start: the startup update flow, then the
// application session until interrupted.
func runApp(ctx context.Context, rawArgs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		// A broken updater config must not keep the application from starting
		cfg = config.Default()
		cfg.ApplyEnv(os.Getenv)
		newLogger(cfg).Warn("ignoring updater config", "err", err)
	}
	logger := newLogger(cfg)

	var startup *launch.Startup
	self, err := selfPath()
	if err != nil {
		logger.Warn("executable path unknown; skipping updates", "err", err)
	} else if startup, err = newStartup(cfg, logger, rawArgs); err != nil {
		logger.Warn("update cache unavailable; skipping update check", "err", err)
	} else {
		startup.Gate.SkipOnce = startup.Gate.SkipOnce || skipUpdate
		if startup.Run(ctx, self, rawArgs) == launch.Exit {
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("TwitchDesk started", "version", build.Version)

	if startup == nil || !startup.Gate.ShouldCheck() {
		<-ctx.Done()
		return nil
	}

	checker, err := update.NewChecker(build.Version, startup.Feed, startup.Platform, startup.Cache.BundlePath)
	if err != nil {
		logger.Warn("background update checks disabled", "err", err)
		<-ctx.Done()
		return nil
	}

	monitor := update.NewMonitor(checker, cfg.CheckInterval(), logger)
	launch.WatchMonitor(monitor, startup.Reporter)
	monitor.Run(ctx)

	logger.Debug("TwitchDesk stopped")
	return nil
}
