// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package cache

import (
	"errors"

	"github.com/charmbracelet/log"
)

// errFlockUnavailable makes the cache fall back to its in-process mutex.
var errFlockUnavailable = errors.New("flock not available on this platform")

type fileLock struct{}

func acquireFileLock(string) (*fileLock, error) {
	return nil, errFlockUnavailable
}

// Release is a no-op on non-Linux platforms.
func (l *fileLock) Release(*log.Logger) {}
