// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// exhaustionErrnos are Win32 errors after which ReadDirectoryChangesW cannot
// recover: ERROR_TOO_MANY_OPEN_FILES, ERROR_INVALID_HANDLE (the mods
// directory was removed) and ERROR_NOT_ENOUGH_MEMORY.
var exhaustionErrnos = []error{syscall.Errno(4), syscall.Errno(6), syscall.Errno(8)}
