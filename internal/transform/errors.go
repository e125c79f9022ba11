// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"
)

const (
	// StageRename is the class symbol renamer.
	StageRename Stage = "rename"
	// StageConfigs is the mixin config rewriter.
	StageConfigs Stage = "configs"
	// StageRefmaps is the reference map rewriter.
	StageRefmaps Stage = "refmaps"
	// StageWiden is the access widener applier.
	StageWiden Stage = "widen"
	// StageProvenance is the provenance tag generator.
	StageProvenance Stage = "provenance"
	// StageIO covers reading the input and writing the output.
	StageIO Stage = "io"
)

// ErrTransformFailed is the sentinel wrapped by StageError.
var ErrTransformFailed = errors.New("transform failed")

type (
	// Stage names a pipeline stage.
	Stage string

	// StageError reports the stage and entry a pipeline run failed on.
	StageError struct {
		Stage Stage
		// Entry is the archive entry being processed, or "" for archive-level failures.
		Entry string
		Cause error
	}
)

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("%s: %s stage: %v", ErrTransformFailed, e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s: %s stage: %s: %v", ErrTransformFailed, e.Stage, e.Entry, e.Cause)
}

// Unwrap returns the cause so callers can inspect it with errors.Is/As.
func (e *StageError) Unwrap() error { return e.Cause }

// Is reports ErrTransformFailed as matching.
func (e *StageError) Is(target error) bool { return target == ErrTransformFailed }
