// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()

		if err := FormatError(nil, "fabric.mod.json"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non-CUE error is wrapped with filepath", func(t *testing.T) {
		t.Parallel()

		original := errors.New("read failed")
		err := FormatError(original, "fabric.mod.json")
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, original) {
			t.Errorf("error should wrap the original, got %v", err)
		}
		if !strings.Contains(err.Error(), "fabric.mod.json") {
			t.Errorf("error should contain filepath, got: %v", err)
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     []string
		expected string
	}{
		{name: "empty path", path: []string{}, expected: ""},
		{name: "single element", path: []string{"id"}, expected: "id"},
		{name: "nested path", path: []string{"contact", "homepage"}, expected: "contact.homepage"},
		{name: "array index", path: []string{"mixins", "0", "config"}, expected: "mixins[0].config"},
		{name: "nested arrays", path: []string{"jars", "1", "tags", "0"}, expected: "jars[1].tags[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatPath(tt.path); got != tt.expected {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"empty", 0, false},
		{"within limit", 11, false},
		{"exact limit", 100, false},
		{"over limit", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckFileSize(make([]byte, tt.size), 100, "config.cue")
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckFileSize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && (!strings.Contains(err.Error(), "config.cue") || !strings.Contains(err.Error(), "101")) {
				t.Errorf("error should name file and size, got: %v", err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	one := &ValidationError{File: "config.cue", Problems: []Problem{{Path: "workers", Message: "out of bound"}}}
	if got, want := one.Error(), "config.cue: workers: out of bound"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	many := &ValidationError{File: "fabric.mod.json", Problems: []Problem{
		{Path: "id", Message: "incomplete value"},
		{Message: "conflicting values"},
	}}
	want := "fabric.mod.json: validation failed:\n  id: incomplete value\n  conflicting values"
	if got := many.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
