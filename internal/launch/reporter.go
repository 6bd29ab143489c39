package launch

import (
	"github.com/charmbracelet/log"

	"github.com/twitchdesk/twitchdesk-desktop/internal/update"
)

// Reporter receives human-readable update status for the application shell.
type Reporter interface {
	Status(msg string)
	Error(err error)
}

// LogReporter writes status lines to a logger.
type LogReporter struct {
	Logger *log.Logger
}

func (r LogReporter) Status(msg string) {
	r.Logger.Info(msg)
}

func (r LogReporter) Error(err error) {
	r.Logger.Warn("update error", "err", err)
}

type nopReporter struct{}

func (nopReporter) Status(string) {}
func (nopReporter) Error(error)   {}

// WatchMonitor forwards every settled Monitor status to r. In-flight
// snapshots are reported as a checking message.
func WatchMonitor(m *update.Monitor, r Reporter) {
	m.OnChange(func(s update.Status) {
		switch {
		case s.Checking:
			r.Status("Checking for updates...")
		case s.Err != nil:
			r.Error(s.Err)
			r.Status(s.Message)
		default:
			r.Status(s.Message)
		}
	})
}
