// SPDX-License-Identifier: MPL-2.0

// Package modmeta extracts the metadata of a mod archive: its descriptor,
// the mixin configurations it declares, the reference maps and mixin
// classes those configurations name, the jar manifest attributes and the
// access widener.
package modmeta

import (
	"archive/zip"
	"fmt"
	"io"

	"golang.org/x/exp/slices"

	"github.com/modbridge/modbridge/pkg/accesswidener"
	"github.com/modbridge/modbridge/pkg/mapping"
)

// maxMetadataEntry bounds the size of any metadata file read into memory.
const maxMetadataEntry = 16 << 20

// Metadata is everything the remap pipeline needs to know about an archive
// before streaming its entries.
type Metadata struct {
	Descriptor *Descriptor
	// Configs holds every declared mixin configuration path, sorted.
	Configs []string
	// PatchConfigs holds the declared configurations present in the archive,
	// sorted by path.
	PatchConfigs []*PatchConfig
	// Refmaps holds the reference map names of all configurations, sorted.
	Refmaps []string
	// PatchedClasses holds the internal names of all listed mixin classes, sorted.
	PatchedClasses []string
	Manifest       Manifest
	// AccessWidener is nil when the descriptor declares none or the file is absent.
	AccessWidener *accesswidener.File
}

// ModID returns the descriptor's mod id.
func (m *Metadata) ModID() string {
	return m.Descriptor.ID
}

// SourceNamespace returns the namespace the archive was compiled against:
// the manifest override when present, otherwise def.
func (m *Metadata) SourceNamespace(def mapping.Namespace) mapping.Namespace {
	if v, ok := m.Manifest.Get(MappingNamespaceAttribute); ok && v != "" {
		return mapping.Namespace(v)
	}
	return def
}

// IsConfig reports whether path is a declared mixin configuration.
func (m *Metadata) IsConfig(path string) bool {
	_, ok := slices.BinarySearch(m.Configs, path)
	return ok
}

// IsRefmap reports whether path is a declared reference map.
func (m *Metadata) IsRefmap(path string) bool {
	_, ok := slices.BinarySearch(m.Refmaps, path)
	return ok
}

// IsPatchedClass reports whether the internal class name is a listed mixin class.
func (m *Metadata) IsPatchedClass(name string) bool {
	_, ok := slices.BinarySearch(m.PatchedClasses, name)
	return ok
}

// Extract reads the metadata of the archive at archivePath. An archive
// without a descriptor yields ErrMissingDescriptor. Any unreadable declared
// configuration is fatal.
func Extract(archivePath string) (meta *Metadata, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return ExtractFrom(&zr.Reader)
}

// ExtractFrom is Extract over an open archive.
func ExtractFrom(zr *zip.Reader) (*Metadata, error) {
	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if _, dup := entries[f.Name]; !dup {
			entries[f.Name] = f
		}
	}

	descFile, ok := entries[DescriptorPath]
	if !ok {
		return nil, ErrMissingDescriptor
	}
	data, err := readEntry(descFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DescriptorPath, err)
	}
	desc, err := ParseDescriptor(data)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		Descriptor: desc,
		Configs:    desc.MixinConfigs(SideAll),
		Manifest:   Manifest{},
	}
	slices.Sort(meta.Configs)

	if mf, ok := entries[ManifestPath]; ok {
		data, err := readEntry(mf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ManifestPath, err)
		}
		meta.Manifest = ParseManifest(data)
	}

	for _, path := range meta.Configs {
		f, ok := entries[path]
		if !ok {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, &PatchConfigError{Path: path, Err: err}
		}
		cfg, err := ParsePatchConfig(path, data)
		if err != nil {
			return nil, err
		}
		meta.PatchConfigs = append(meta.PatchConfigs, cfg)
		if cfg.Refmap != "" {
			meta.Refmaps = append(meta.Refmaps, cfg.Refmap)
		}
		meta.PatchedClasses = append(meta.PatchedClasses, cfg.ClassPaths()...)
	}
	slices.Sort(meta.Refmaps)
	meta.Refmaps = slices.Compact(meta.Refmaps)
	slices.Sort(meta.PatchedClasses)
	meta.PatchedClasses = slices.Compact(meta.PatchedClasses)

	if desc.AccessWidener != "" {
		if f, ok := entries[desc.AccessWidener]; ok {
			data, err := readEntry(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", desc.AccessWidener, err)
			}
			if meta.AccessWidener, err = accesswidener.ParseBytes(data); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrMalformedAccessWidener, desc.AccessWidener, err)
			}
		}
	}
	return meta, nil
}

func readEntry(f *zip.File) (data []byte, err error) {
	if f.UncompressedSize64 > maxMetadataEntry {
		return nil, fmt.Errorf("entry of %d bytes exceeds limit of %d", f.UncompressedSize64, maxMetadataEntry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return io.ReadAll(io.LimitReader(rc, maxMetadataEntry))
}
