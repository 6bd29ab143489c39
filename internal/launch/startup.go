package launch

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/twitchdesk/twitchdesk-desktop/internal/apply"
	"github.com/twitchdesk/twitchdesk-desktop/internal/cache"
	"github.com/twitchdesk/twitchdesk-desktop/internal/logging"
	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
	"github.com/twitchdesk/twitchdesk-desktop/internal/update"
)

// Next tells the caller what to do after the startup flow.
type Next int

const (
	// Continue starts the application normally.
	Continue Next = iota
	// Exit ends the process so the helper can replace its executable.
	Exit
)

func (n Next) String() string {
	if n == Exit {
		return "exit"
	}
	return "continue"
}

// ErrNoPlan is returned by Stage when the check result carries nothing to download.
var ErrNoPlan = errors.New("no update plan")

// Startup runs the update check that precedes a normal application start.
type Startup struct {
	Version      string
	Gate         Gate
	Feed         update.Feed
	Platform     update.Platform
	Downloader   update.Downloader
	Cache        *cache.Manager
	KeepVersions int
	Launcher     apply.Launcher
	Logger       *log.Logger
	Reporter     Reporter

	// OnState observes state transitions.
	OnState func(types.State)
}

// Run performs gate, check, download and helper hand-off. Any failure is
// reported and the application continues on its current version; Exit is
// returned only once the helper has been spawned.
func (s *Startup) Run(ctx context.Context, self string, args []string) Next {
	s.transition(types.StateIdle)

	if !s.Gate.ShouldCheck() {
		s.logger().Debug("update check skipped", "reason", s.Gate.Reason())
		return Continue
	}

	result, err := s.Check(ctx)
	if err != nil {
		s.reporter().Error(err)
		s.reporter().Status("No update available")
		s.transition(types.StateNoUpdateFound)
		return Continue
	}

	if result.Plan == nil {
		s.reporter().Status(result.String())
		s.transition(types.StateNoUpdateFound)
		s.prune()
		return Continue
	}

	if err := s.Stage(ctx, result.Plan); err != nil {
		s.logger().Warn("failed to download update; continuing on current version", "err", err)
		s.reporter().Error(err)
		s.transition(types.StateNoUpdateFound)
		return Continue
	}
	s.transition(types.StateUpdateStaged)

	if err := s.Handoff(self, args, result.Plan); err != nil {
		s.logger().Error("failed to start update helper; continuing on current version", "err", err)
		s.reporter().Error(err)
		return Continue
	}
	s.transition(types.StateHelperSpawned)
	return Exit
}

// Check asks the release feed whether a newer version exists.
func (s *Startup) Check(ctx context.Context) (*update.Result, error) {
	s.transition(types.StateCheckingForUpdate)
	s.reporter().Status("Checking for updates...")

	checker, err := update.NewChecker(s.Version, s.Feed, s.Platform, s.Cache.BundlePath)
	if err != nil {
		return nil, err
	}

	result, err := checker.Check(ctx)
	if err != nil {
		s.logger().Warn("update check failed", "err", err)
		return nil, err
	}

	s.logger().Debug("update check finished",
		"current", result.CurrentVersion, "latest", result.LatestVersion, "available", result.Available)
	return result, nil
}

// Stage downloads the planned bundle into the cache.
func (s *Startup) Stage(ctx context.Context, plan *update.Plan) error {
	if plan == nil {
		return ErrNoPlan
	}

	s.reporter().Status(fmt.Sprintf("Downloading %s...", plan.Latest))
	s.logger().Info("downloading update", "version", plan.Latest, "asset", plan.AssetName, "to", plan.DownloadPath)

	if err := s.Downloader.Download(ctx, plan.DownloadURL, plan.DownloadPath); err != nil {
		return fmt.Errorf("failed to download %s: %w", plan.AssetName, err)
	}
	return nil
}

// Handoff refreshes the helper copy in the cache and starts it in apply mode.
// The caller must exit promptly afterwards so the helper can swap files.
func (s *Startup) Handoff(self string, args []string, plan *update.Plan) error {
	if plan == nil {
		return ErrNoPlan
	}

	helper := s.Cache.HelperPath(apply.HelperExecutable)
	if err := apply.EnsureHelper(self, helper); err != nil {
		return err
	}

	inv := apply.NewInvocation(plan.DownloadPath, self, args)
	if err := apply.SpawnHelper(s.launcher(), helper, inv); err != nil {
		return err
	}

	s.logger().Info("update helper started", "helper", helper, "version", plan.Latest)
	s.reporter().Status(fmt.Sprintf("Installing %s, restarting...", plan.Latest))
	return nil
}

// prune drops old cached versions. Failures never affect startup.
func (s *Startup) prune() {
	keep := s.KeepVersions
	if keep <= 0 {
		keep = cache.DefaultKeepCount
	}
	res, err := s.Cache.Prune(keep)
	if err != nil {
		s.logger().Debug("cache prune failed", "err", err)
		return
	}
	if len(res.Deleted) > 0 {
		s.logger().Debug("pruned cached versions", "deleted", len(res.Deleted), "kept", res.Kept)
	}
}

func (s *Startup) transition(state types.State) {
	if s.OnState != nil {
		s.OnState(state)
	}
}

func (s *Startup) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = logging.Discard()
	}
	return s.Logger
}

func (s *Startup) reporter() Reporter {
	if s.Reporter == nil {
		return nopReporter{}
	}
	return s.Reporter
}

func (s *Startup) launcher() apply.Launcher {
	if s.Launcher == nil {
		return apply.ProcessLauncher{}
	}
	return s.Launcher
}
