package apply

import (
	"fmt"
	"os/exec"
)

// Launcher starts a detached process and does not wait for it.
type Launcher interface {
	Start(path string, args []string) error
}

// ProcessLauncher starts real OS processes.
type ProcessLauncher struct{}

// Start runs path with args and releases the child so the caller may exit.
func (ProcessLauncher) Start(path string, args []string) error {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}
	return cmd.Process.Release()
}
