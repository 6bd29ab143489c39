package update

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Status is a point-in-time snapshot of the background check
type Status struct {
	Checking  bool      `json:"checking" yaml:"checking"`
	Available bool      `json:"available" yaml:"available"`
	Latest    string    `json:"latest,omitempty" yaml:"latest,omitempty"`
	Message   string    `json:"message" yaml:"message"`
	Err       error     `json:"-" yaml:"-"`
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

// Monitor polls for updates in the background and exposes the latest
// result without blocking the caller.
type Monitor struct {
	checker  UpdateChecker
	interval time.Duration
	logger   *log.Logger

	group   singleflight.Group
	trigger chan struct{}

	mu       sync.RWMutex
	status   Status
	onChange func(Status)
}

// NewMonitor creates a monitor. A non-positive interval disables periodic
// polling; Trigger and Refresh still work.
func NewMonitor(checker UpdateChecker, interval time.Duration, logger *log.Logger) *Monitor {
	return &Monitor{
		checker:  checker,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		status:   Status{Message: "update check pending"},
	}
}

// OnChange registers a callback invoked after every status change
func (m *Monitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Status returns the current snapshot
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh runs a check now. Concurrent callers share a single in-flight check.
func (m *Monitor) Refresh(ctx context.Context) Status {
	v, _, _ := m.group.Do("check", func() (any, error) {
		m.update(func(s *Status) { s.Checking = true })

		result, err := m.checker.Check(ctx)
		next := Status{CheckedAt: time.Now()}

		switch {
		case err != nil:
			next.Err = err
			next.Message = "no update available (check failed)"
			if errors.Is(err, ErrInvalidVersion) {
				next.Message = "no update available (latest release has an invalid version)"
			}
			m.logger.Warn("update check failed", "err", err)
		default:
			next.Available = result.Available
			next.Latest = result.LatestVersion
			next.Message = result.String()
			m.logger.Debug("update check finished", "available", result.Available, "latest", result.LatestVersion)
		}

		m.update(func(s *Status) { *s = next })
		return next, nil
	})

	return v.(Status)
}

// Trigger requests a check from the Run loop without waiting for it
func (m *Monitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Run checks immediately, then on every interval tick or Trigger, until ctx
// is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Refresh(ctx)

	var tick <-chan time.Time
	if m.interval > 0 {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			m.Refresh(ctx)
		case <-m.trigger:
			m.Refresh(ctx)
		}
	}
}

func (m *Monitor) update(mutate func(*Status)) {
	m.mu.Lock()
	mutate(&m.status)
	snapshot := m.status
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}
