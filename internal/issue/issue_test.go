// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/modbridge/modbridge/internal/cache"
	"github.com/modbridge/modbridge/internal/transform"
	"github.com/modbridge/modbridge/pkg/accesswidener"
	"github.com/modbridge/modbridge/pkg/classfile"
	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

func allIds() []Id {
	return []Id{
		MissingDescriptorId,
		InvalidDescriptorId,
		MalformedPatchConfigId,
		MalformedAccessWidenerId,
		NamespaceUnavailableId,
		MalformedClassId,
		ArchiveUnreadableId,
		TransformFailedId,
		CacheIOId,
		MappingsLoadFailedId,
		ConfigLoadFailedId,
		PermissionDeniedId,
	}
}

func mockRender(t *testing.T) {
	t.Helper()
	originalRender := render
	t.Cleanup(func() { render = originalRender })
	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}
}

func TestId_Constants(t *testing.T) {
	seen := make(map[Id]bool)
	for _, id := range allIds() {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// IDs start at 1 so the zero value means "unclassified".
	if MissingDescriptorId != 1 {
		t.Errorf("MissingDescriptorId = %d, want 1", MissingDescriptorId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{MissingDescriptorId, false, "Not a Fabric mod"},
		{InvalidDescriptorId, false, "Invalid mod descriptor"},
		{MalformedPatchConfigId, false, "Malformed mixin configuration"},
		{MalformedAccessWidenerId, false, "Malformed access widener"},
		{NamespaceUnavailableId, false, "Mapping namespace unavailable"},
		{MalformedClassId, false, "Malformed class file"},
		{ArchiveUnreadableId, false, "Archive unreadable"},
		{TransformFailedId, false, "Remapping failed"},
		{CacheIOId, false, "Cache unavailable"},
		{MappingsLoadFailedId, false, "Failed to load mappings"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{PermissionDeniedId, false, "Permission denied"},
		{Id(9999), true, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.id), func(t *testing.T) {
			issue := Get(tt.id)
			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("issue.Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain '%s'", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()
	if len(issues) != len(allIds()) {
		t.Fatalf("Values() returned %d issues, want %d", len(issues), len(allIds()))
	}
	for i, issue := range issues {
		if issue.Id() != allIds()[i] {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, issue.Id(), allIds()[i])
		}
	}
}

func TestIssue_DocLinks(t *testing.T) {
	issue := Get(MissingDescriptorId)
	links := issue.DocLinks()
	if len(links) == 0 {
		t.Fatal("MissingDescriptor issue should link the descriptor format")
	}
	original := links[0]
	links[0] = "modified"
	if issue.DocLinks()[0] != original {
		t.Error("DocLinks() should return a clone")
	}
	if issue.ExtLinks() != nil {
		t.Errorf("ExtLinks() = %v, want nil", issue.ExtLinks())
	}
}

func TestIssue_Render(t *testing.T) {
	mockRender(t)

	withLinks, err := Get(NamespaceUnavailableId).Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(withLinks, "Fabric-Mapping-Namespace") || !strings.Contains(withLinks, "See also") {
		t.Errorf("Render() = %q", withLinks)
	}

	noLinks, err := Get(TransformFailedId).Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(noLinks, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	mockRender(t)

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("Issue %d rendered to empty string", issue.Id())
		}
		if _, ok := suggestions[issue.Id()]; !ok && issue.Id() != TransformFailedId {
			t.Errorf("Issue %d has no suggestions", issue.Id())
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	stageErr := func(cause error) error {
		return &transform.StageError{Stage: transform.StageRename, Entry: "a/Foo.class", Cause: cause}
	}

	tests := []struct {
		name string
		err  error
		want Id
	}{
		{"nil", nil, 0},
		{"unknown", errors.New("boom"), 0},
		{"missing descriptor", fmt.Errorf("extract: %w", modmeta.ErrMissingDescriptor), MissingDescriptorId},
		{"invalid descriptor", modmeta.ErrInvalidDescriptor, InvalidDescriptorId},
		{"patch config", &modmeta.PatchConfigError{Path: "a.json", Err: errors.New("eof")}, MalformedPatchConfigId},
		{"access widener", &accesswidener.ParseError{Line: 2, Msg: "bad"}, MalformedAccessWidenerId},
		{"namespace", &mapping.NamespaceUnavailableError{Namespace: "named"}, NamespaceUnavailableId},
		{"tiny", mapping.ErrMalformedTiny, MappingsLoadFailedId},
		{"class inside transform", stageErr(classfile.ErrTruncated), MalformedClassId},
		{"transform", stageErr(transform.ErrEntryCollision), TransformFailedId},
		{"zip", zip.ErrFormat, ArchiveUnreadableId},
		{"permission", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, PermissionDeniedId},
		{"cache", cache.ErrCacheIO, CacheIOId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}

	if ForError(errors.New("boom")) != nil {
		t.Error("ForError() of an unclassified error should be nil")
	}
}
