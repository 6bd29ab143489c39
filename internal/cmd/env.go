package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/twitchdesk/twitchdesk-desktop/internal/cache"
	"github.com/twitchdesk/twitchdesk-desktop/internal/config"
	"github.com/twitchdesk/twitchdesk-desktop/internal/launch"
	"github.com/twitchdesk/twitchdesk-desktop/internal/logging"
	"github.com/twitchdesk/twitchdesk-desktop/internal/update"
)

type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

// build is set by Execute from the linker-stamped values
var build = buildInfo{Version: launch.DevVersion, Commit: "none", Date: "unknown"}

// selfPath is the running executable with symlinks resolved. It is resolved
// once so the helper copy and the relaunch target agree.
var selfPath = sync.OnceValues(func() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get current binary path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve binary path: %w", err)
	}
	return exe, nil
})

// loadConfig resolves the updater config using the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Resolve(configPath)
	return cfg, err
}

// newLogger logs to stderr at the level chosen by flags or config.
func newLogger(cfg *config.Config) *log.Logger {
	return logging.New(os.Stderr, logging.LevelFromFlags(cfg.LogLevel, verbose, quiet))
}

func newFeed(cfg *config.Config) *update.ReleaseClient {
	owner, repo := cfg.RepoCoordinates()
	return update.NewReleaseClient(owner, repo).
		WithBaseURL(cfg.APIBaseURL).
		WithTimeout(cfg.RequestTimeout())
}

// newStartup wires the update flow for this process.
func newStartup(cfg *config.Config, logger *log.Logger, rawArgs []string) (*launch.Startup, error) {
	mgr, err := cache.NewManager()
	if err != nil {
		return nil, err
	}

	return &launch.Startup{
		Version:  build.Version,
		Gate:     launch.NewGate(build.Version, cfg.Disabled, rawArgs),
		Feed:     newFeed(cfg),
		Platform: update.Detect(),
		Downloader: update.NewHTTPDownloader().
			WithTimeout(cfg.DownloadTimeout()).
			WithStallTimeout(cfg.RequestTimeout()),
		Cache:        mgr,
		KeepVersions: cfg.KeepVersions,
		Logger:       logger,
		Reporter:     launch.LogReporter{Logger: logger},
	}, nil
}
