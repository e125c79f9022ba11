// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mixin class list keys in a mixin configuration.
const (
	ListCommon = "mixins"
	ListClient = "client"
	ListServer = "server"
)

// ClassLists are the per-side class list keys, in the order they are read.
var ClassLists = []string{ListCommon, ListClient, ListServer}

type (
	// PatchConfig is a parsed mixin configuration.
	PatchConfig struct {
		// Path is the archive entry the configuration was read from.
		Path string
		// Refmap is the reference map file name, or "".
		Refmap string
		// Package is the dotted base package of the mixin classes, or "".
		Package string
		// Classes holds the class names of each list key, relative to Package.
		Classes map[string][]string
	}

	rawPatchConfig struct {
		Refmap  *string         `json:"refmap"`
		Package *string         `json:"package"`
		Mixins  json.RawMessage `json:"mixins"`
		Client  json.RawMessage `json:"client"`
		Server  json.RawMessage `json:"server"`
	}
)

// ParsePatchConfig decodes a mixin configuration. Absent class lists are
// empty; lists of the wrong shape are an error.
func ParsePatchConfig(path string, data []byte) (*PatchConfig, error) {
	var raw rawPatchConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &PatchConfigError{Path: path, Err: err}
	}
	cfg := &PatchConfig{Path: path, Classes: make(map[string][]string, len(ClassLists))}
	if raw.Refmap != nil {
		cfg.Refmap = *raw.Refmap
	}
	if raw.Package != nil {
		cfg.Package = *raw.Package
	}
	lists := [...]json.RawMessage{raw.Mixins, raw.Client, raw.Server}
	for i, key := range ClassLists {
		msg := lists[i]
		if len(msg) == 0 || string(msg) == "null" {
			continue
		}
		var names []string
		if err := json.Unmarshal(msg, &names); err != nil {
			return nil, &PatchConfigError{Path: path, Err: fmt.Errorf("%q: %w", key, err)}
		}
		cfg.Classes[key] = names
	}
	return cfg, nil
}

// PackagePath returns the base package as an internal-name prefix
// ("com/example/mixin/"), or "" when the configuration declares none.
func (c *PatchConfig) PackagePath() string {
	if c.Package == "" {
		return ""
	}
	return strings.ReplaceAll(c.Package, ".", "/") + "/"
}

// ClassPath returns the internal name of a listed class.
func (c *PatchConfig) ClassPath(name string) string {
	return c.PackagePath() + strings.ReplaceAll(name, ".", "/")
}

// ClassPaths returns the internal names of every listed class across all
// sides. Only configurations with a base package contribute.
func (c *PatchConfig) ClassPaths() []string {
	if c.Package == "" {
		return nil
	}
	var out []string
	for _, key := range ClassLists {
		for _, name := range c.Classes[key] {
			out = append(out, c.ClassPath(name))
		}
	}
	return out
}
