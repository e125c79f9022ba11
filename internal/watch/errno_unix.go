// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// exhaustionErrnos are inotify resource limits: the watch limit (ENOSPC) and
// the process and system descriptor limits.
var exhaustionErrnos = []error{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}
