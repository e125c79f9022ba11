// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"archive/zip"
	"errors"
	"io/fs"

	"github.com/modbridge/modbridge/internal/cache"
	"github.com/modbridge/modbridge/internal/transform"
	"github.com/modbridge/modbridge/pkg/accesswidener"
	"github.com/modbridge/modbridge/pkg/classfile"
	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

// classifiers are checked in order; more specific causes come first because
// pipeline errors wrap them.
var classifiers = []struct {
	target error
	id     Id
}{
	{modmeta.ErrMissingDescriptor, MissingDescriptorId},
	{modmeta.ErrInvalidDescriptor, InvalidDescriptorId},
	{modmeta.ErrMalformedPatchConfig, MalformedPatchConfigId},
	{modmeta.ErrMalformedAccessWidener, MalformedAccessWidenerId},
	{accesswidener.ErrMalformed, MalformedAccessWidenerId},
	{mapping.ErrNamespaceUnavailable, NamespaceUnavailableId},
	{mapping.ErrMalformedTiny, MappingsLoadFailedId},
	{classfile.ErrMalformed, MalformedClassId},
	{zip.ErrFormat, ArchiveUnreadableId},
	{fs.ErrPermission, PermissionDeniedId},
	{cache.ErrCacheIO, CacheIOId},
	{transform.ErrTransformFailed, TransformFailedId},
}

// Classify returns the catalog Id describing err, or 0 when none applies.
func Classify(err error) Id {
	if err == nil {
		return 0
	}
	for _, c := range classifiers {
		if errors.Is(err, c.target) {
			return c.id
		}
	}
	return 0
}

// ForError returns the catalog entry describing err, or nil.
func ForError(err error) *Issue {
	return Get(Classify(err))
}

var suggestions = map[Id][]string{
	MissingDescriptorId:      {"Exclude the archive if it is not a Fabric mod"},
	InvalidDescriptorId:      {"Check fabric.mod.json against the descriptor format", "Ask the mod author for a fixed release"},
	MalformedPatchConfigId:   {"Check the mixin configuration named above"},
	MalformedAccessWidenerId: {"Check the access widener line named above"},
	NamespaceUnavailableId:   {"Check the namespaces in the mappings file header", "Run 'modbridge config show' to see the configured namespaces"},
	MalformedClassId:         {"Re-download the mod; the archive may be corrupted"},
	ArchiveUnreadableId:      {"Re-download the mod; the file is not a valid jar"},
	CacheIOId:                {"Check that the cache directory is writable"},
	MappingsLoadFailedId:     {"Check the 'mappings' path in your configuration"},
	ConfigLoadFailedId:       {"Run 'modbridge config show' to inspect the effective configuration"},
	PermissionDeniedId:       {"Check the permissions of the mods and cache directories"},
}

// Actionable wraps err with the operation and resource it failed on, adding
// its catalog classification and that entry's suggestions. It returns nil for a nil err.
func Actionable(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	id := Classify(err)
	return NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithIssue(id).
		WithSuggestions(suggestions[id]...).
		Wrap(err).
		Build()
}
