// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"encoding/json"
)

const (
	// PackMetadataPath is the resource pack descriptor at the archive root.
	PackMetadataPath = "pack.mcmeta"

	packFormat = 15
)

type (
	// ProvenanceGenerator adds a pack.mcmeta naming the mod when the archive
	// has none. It never alters existing entries.
	ProvenanceGenerator struct {
		modID string
		seen  bool
	}

	packMetadata struct {
		Pack packSection `json:"pack"`
	}

	packSection struct {
		Description string `json:"description"`
		PackFormat  int    `json:"pack_format"`
	}
)

// NewProvenanceGenerator creates a generator for the mod with the given id.
func NewProvenanceGenerator(modID string) *ProvenanceGenerator {
	return &ProvenanceGenerator{modID: modID}
}

// Transform implements Transformer.
func (g *ProvenanceGenerator) Transform(e Entry) (Entry, error) {
	if e.Name == PackMetadataPath {
		g.seen = true
	}
	return e, nil
}

// Finish implements Finisher.
func (g *ProvenanceGenerator) Finish() ([]Entry, error) {
	if g.seen {
		return nil, nil
	}
	data, err := json.MarshalIndent(packMetadata{
		Pack: packSection{Description: g.modID + " resources", PackFormat: packFormat},
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []Entry{NewEntry(PackMetadataPath, append(data, '\n'))}, nil
}
