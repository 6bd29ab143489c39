//go:build !unix && !windows

package apply

func isLockError(error) bool {
	return false
}
