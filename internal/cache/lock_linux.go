// SPDX-License-Identifier: MPL-2.0

//go:build linux

package cache

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// errFlockUnavailable keeps the error set identical across platforms. It is
// never returned on Linux.
var errFlockUnavailable = errors.New("flock not available on this platform")

// fileLock holds a blocking exclusive flock. The kernel releases it when the
// descriptor is closed, including on process crash, so an orphaned lock file
// is harmless.
type fileLock struct {
	file *os.File
}

func acquireFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &fileLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *fileLock) Release(logger *log.Logger) {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		logger.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		logger.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
