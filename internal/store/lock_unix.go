//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile blocks until an exclusive lock on f is held.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// unlockFile releases the lock taken by lockFile.
func unlockFile(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
