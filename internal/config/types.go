// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/modbridge/modbridge/pkg/mapping"
)

const (
	// LogLevelDebug enables remap traces.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo reports each remapped archive.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn reports recoverable problems only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError reports failures only.
	LogLevelError LogLevel = "error"

	// defaultCacheSubdir is the cache directory below the mods directory.
	defaultCacheSubdir = "connector"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log output.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// Config holds the application configuration.
	Config struct {
		// ModsDir is the directory scanned for mod archives.
		ModsDir string `json:"mods_dir" mapstructure:"mods_dir"`
		// CacheDir receives remapped archives. Empty means <mods_dir>/connector.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// Mappings is the Tiny mappings file.
		Mappings string `json:"mappings" mapstructure:"mappings"`
		// SourceNamespace is assumed for archives whose manifest names none.
		SourceNamespace mapping.Namespace `json:"source_namespace" mapstructure:"source_namespace"`
		// TargetNamespace is the namespace archives are remapped to.
		TargetNamespace mapping.Namespace `json:"target_namespace" mapstructure:"target_namespace"`
		// RefmapNamespace is the namespace mixin reference maps are written in.
		RefmapNamespace mapping.Namespace `json:"refmap_namespace" mapstructure:"refmap_namespace"`
		// GameVersion is appended to remapped archive names when set.
		GameVersion string `json:"game_version" mapstructure:"game_version"`
		// Workers bounds concurrent remaps; 0 means one per CPU.
		Workers int `json:"workers" mapstructure:"workers"`
		// Exclude holds globs of archive names to leave alone.
		Exclude []string `json:"exclude" mapstructure:"exclude"`
		// LogLevel is the minimum level of log output.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel so callers can use errors.Is for programmatic detection.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate returns nil if the LogLevel is one of the defined levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Level converts to the logger level. Unknown values map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ModsDir:         "mods",
		SourceNamespace: mapping.Intermediary,
		TargetNamespace: mapping.Srg,
		RefmapNamespace: mapping.Intermediary,
		LogLevel:        LogLevelInfo,
	}
}

// ResolvedCacheDir returns CacheDir, defaulting to <mods_dir>/connector.
func (c *Config) ResolvedCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(c.ModsDir, defaultCacheSubdir)
}

// Validate checks constraints the schema does not cover, which matters for
// values that arrive through environment variables.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ModsDir) == "" {
		errs = append(errs, errors.New("mods_dir must not be empty"))
	}
	for _, ns := range []struct {
		key   string
		value mapping.Namespace
	}{
		{"source_namespace", c.SourceNamespace},
		{"target_namespace", c.TargetNamespace},
		{"refmap_namespace", c.RefmapNamespace},
	} {
		if err := ns.value.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ns.key, err))
		}
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	for _, pat := range c.Exclude {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("exclude: invalid pattern %q", pat))
		}
	}
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}
