// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	_ "embed"
	"fmt"

	"github.com/modbridge/modbridge/pkg/cueutil"
)

// DescriptorPath is the well-known location of the mod descriptor.
const DescriptorPath = "fabric.mod.json"

const (
	// SideAll marks a mixin configuration that applies on both sides.
	SideAll Side = "*"
	// SideClient marks a client-only mixin configuration.
	SideClient Side = "client"
	// SideServer marks a dedicated-server-only mixin configuration.
	SideServer Side = "server"
)

//go:embed descriptor_schema.cue
var descriptorSchema []byte

type (
	// Side is a deployment side.
	Side string

	// Descriptor is the parsed mod descriptor.
	Descriptor struct {
		SchemaVersion int
		ID            string
		Version       string
		Name          string
		Environment   Side
		Mixins        []MixinRef
		AccessWidener string
		Jars          []string
	}

	// MixinRef is a mixin configuration declared by the descriptor.
	MixinRef struct {
		Config string
		Side   Side
	}

	rawDescriptor struct {
		SchemaVersion int            `json:"schemaVersion"`
		ID            string         `json:"id"`
		Version       string         `json:"version"`
		Name          string         `json:"name,omitempty"`
		Environment   string         `json:"environment,omitempty"`
		Mixins        any            `json:"mixins,omitempty"`
		AccessWidener string         `json:"accessWidener,omitempty"`
		Jars          []rawNestedJar `json:"jars,omitempty"`
	}

	rawNestedJar struct {
		File string `json:"file"`
	}
)

// ParseDescriptor validates data against the descriptor schema and decodes it.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	result, err := cueutil.ParseAndDecode[rawDescriptor](
		descriptorSchema,
		data,
		"#Descriptor",
		cueutil.WithFilename(DescriptorPath),
		cueutil.WithJSON(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	raw := result.Value

	d := &Descriptor{
		SchemaVersion: raw.SchemaVersion,
		ID:            raw.ID,
		Version:       raw.Version,
		Name:          raw.Name,
		Environment:   Side(raw.Environment),
		AccessWidener: raw.AccessWidener,
	}
	if d.Environment == "" {
		d.Environment = SideAll
	}
	if d.Mixins, err = decodeMixins(raw.Mixins); err != nil {
		return nil, fmt.Errorf("%w: %s: mixins: %w", ErrInvalidDescriptor, DescriptorPath, err)
	}
	for _, j := range raw.Jars {
		d.Jars = append(d.Jars, j.File)
	}
	return d, nil
}

// decodeMixins normalizes both descriptor layouts: a list of names or
// {config, environment} objects, or an object of side -> names.
func decodeMixins(v any) ([]MixinRef, error) {
	switch mixins := v.(type) {
	case nil:
		return nil, nil
	case []any:
		refs := make([]MixinRef, 0, len(mixins))
		for i, m := range mixins {
			switch entry := m.(type) {
			case string:
				refs = append(refs, MixinRef{Config: entry, Side: SideAll})
			case map[string]any:
				cfg, _ := entry["config"].(string)
				side, _ := entry["environment"].(string)
				if side == "" {
					side = string(SideAll)
				}
				refs = append(refs, MixinRef{Config: cfg, Side: Side(side)})
			default:
				return nil, fmt.Errorf("entry %d has type %T", i, m)
			}
		}
		return refs, nil
	case map[string]any:
		var refs []MixinRef
		for _, key := range []string{"common", "client", "server"} {
			list, _ := mixins[key].([]any)
			side := Side(key)
			if key == "common" {
				side = SideAll
			}
			for _, m := range list {
				if cfg, ok := m.(string); ok {
					refs = append(refs, MixinRef{Config: cfg, Side: side})
				}
			}
		}
		return refs, nil
	}
	return nil, fmt.Errorf("unexpected type %T", v)
}

// MixinConfigs returns the configuration paths that apply on side, in
// declaration order without duplicates. SideAll selects every declared config.
func (d *Descriptor) MixinConfigs(side Side) []string {
	seen := make(map[string]bool, len(d.Mixins))
	var out []string
	for _, m := range d.Mixins {
		if seen[m.Config] {
			continue
		}
		if side != SideAll && m.Side != SideAll && m.Side != side {
			continue
		}
		seen[m.Config] = true
		out = append(out, m.Config)
	}
	return out
}
