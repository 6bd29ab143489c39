package apply

import (
	"errors"
	"fmt"
	"os"
)

// BackupSuffix is appended to a target to form its backup path.
const BackupSuffix = ".old"

// ErrReplacementMissing is returned when the staged file for a swap is absent.
var ErrReplacementMissing = errors.New("replacement file missing")

// rename is swapped out in tests to simulate a target that stays locked.
var rename = os.Rename

// Unit is one file to replace.
type Unit struct {
	Target      string
	Replacement string
}

// BackupPath returns target + ".old"
func (u Unit) BackupPath() string {
	return u.Target + BackupSuffix
}

// Swap replaces u.Target with u.Replacement by renaming:
//
//  1. remove a stale backup, ignoring errors
//  2. rename the target to the backup, when the target exists
//  3. rename the replacement onto the target
//
// If step 3 fails the backup is renamed back, so a failed call never leaves
// the target path empty. Both paths must be on the same filesystem.
func Swap(u Unit) error {
	_, err := swap(u)
	return err
}

// swap is Swap that also reports whether a backup was taken.
func swap(u Unit) (backedUp bool, err error) {
	if _, err := os.Stat(u.Replacement); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrReplacementMissing, u.Replacement, err)
	}

	backup := u.BackupPath()
	_ = os.Remove(backup)

	if _, err := os.Lstat(u.Target); err == nil {
		if err := rename(u.Target, backup); err != nil {
			return false, fmt.Errorf("failed to move %s aside: %w", u.Target, err)
		}
		backedUp = true
	}

	if err := rename(u.Replacement, u.Target); err != nil {
		if backedUp {
			if rerr := rename(backup, u.Target); rerr != nil {
				return false, fmt.Errorf("failed to install %s: %w (restoring backup also failed: %v)", u.Target, err, rerr)
			}
		}
		return false, fmt.Errorf("failed to install %s: %w", u.Target, err)
	}

	return backedUp, nil
}

// SwapAll swaps units in order. On the first failure the units already
// swapped are rolled back in reverse order: a target that had a backup gets
// it back, a target that did not exist before is removed. The installation is
// therefore either fully updated or left as it was. A retry re-stages and
// swaps all of them again.
func SwapAll(units []Unit) error {
	type swapped struct {
		unit     Unit
		backedUp bool
	}
	var done []swapped

	for _, u := range units {
		backedUp, err := swap(u)
		if err == nil {
			done = append(done, swapped{u, backedUp})
			continue
		}

		errs := []error{err}
		for i := len(done) - 1; i >= 0; i-- {
			if rerr := rollback(done[i].unit, done[i].backedUp); rerr != nil {
				errs = append(errs, rerr)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// rollback undoes a completed swap of u.
func rollback(u Unit, backedUp bool) error {
	if backedUp {
		if err := rename(u.BackupPath(), u.Target); err != nil {
			return fmt.Errorf("failed to restore %s: %w", u.Target, err)
		}
		return nil
	}
	if err := os.Remove(u.Target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", u.Target, err)
	}
	return nil
}

// IsLocked reports whether err looks like the target is still held open by
// another process, which is the condition the apply loop waits out.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	return isLockError(err)
}
