// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modbridge/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/modbridge/config.cue on macOS and
// %APPDATA%\modbridge\config.cue on Windows), falling back to ./config.cue. Every key
// can be overridden with a MODBRIDGE_<KEY> environment variable, for example
// MODBRIDGE_MODS_DIR or MODBRIDGE_TARGET_NAMESPACE.
//
// Files are validated against an embedded CUE schema (config_schema.cue); values that
// arrive through the environment are checked by Config.Validate.
package config
