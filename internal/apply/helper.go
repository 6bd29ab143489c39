package apply

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureHelper copies the running executable to helperPath, always replacing
// any previous copy so the helper's code matches the installed version.
func EnsureHelper(self, helperPath string) error {
	if err := os.MkdirAll(filepath.Dir(helperPath), 0o755); err != nil {
		return fmt.Errorf("failed to create helper directory: %w", err)
	}

	_ = os.Remove(helperPath)

	if err := copyFile(self, helperPath, 0o755); err != nil {
		_ = os.Remove(helperPath)
		return fmt.Errorf("failed to copy helper to %s: %w", helperPath, err)
	}

	return nil
}

// SpawnHelper starts the helper in apply mode for inv.
func SpawnHelper(launcher Launcher, helperPath string, inv *Invocation) error {
	if err := launcher.Start(helperPath, inv.Args()); err != nil {
		return fmt.Errorf("failed to spawn apply-update helper: %w", err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// OpenFile's mode is filtered by umask
	return os.Chmod(dst, mode)
}
