// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory, which
// os.UserHomeDir does not let tests redirect reliably on every platform.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path. It is intended
// for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
