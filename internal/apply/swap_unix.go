//go:build unix

package apply

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isLockError(err error) bool {
	return errors.Is(err, unix.ETXTBSY) || errors.Is(err, unix.EBUSY)
}
