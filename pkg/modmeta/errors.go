// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDescriptor is returned when an archive has no fabric.mod.json.
	// The archive is not a remap candidate; callers skip it.
	ErrMissingDescriptor = errors.New("mod descriptor not found")

	// ErrInvalidDescriptor is returned when fabric.mod.json fails schema validation.
	ErrInvalidDescriptor = errors.New("invalid mod descriptor")

	// ErrMalformedPatchConfig is returned when a declared mixin configuration
	// cannot be read or parsed.
	ErrMalformedPatchConfig = errors.New("malformed patch configuration")

	// ErrMalformedAccessWidener is returned when the declared access widener
	// cannot be parsed.
	ErrMalformedAccessWidener = errors.New("malformed access widener")
)

// PatchConfigError names the configuration that failed to load.
// It wraps ErrMalformedPatchConfig for errors.Is() compatibility.
type PatchConfigError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PatchConfigError) Error() string {
	return fmt.Sprintf("patch configuration %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PatchConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedPatchConfig.
func (e *PatchConfigError) Is(target error) bool { return target == ErrMalformedPatchConfig }
