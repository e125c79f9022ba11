// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modbridge/modbridge/internal/remap"
	"github.com/modbridge/modbridge/internal/testutil"
	"github.com/modbridge/modbridge/internal/transform"
	"github.com/modbridge/modbridge/pkg/classfile"
	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

const (
	// benchClasses is the number of mapped classes in the generated mapping set.
	benchClasses = 2000
	// benchMembers is the number of fields and of methods per mapped class.
	benchMembers = 8
	// benchArchiveClasses is the number of classes in the generated mod archive.
	benchArchiveClasses = 200
)

// tinyMappings generates a Tiny v2 mapping set shaped like a game's
// intermediary-to-srg mappings.
func tinyMappings() string {
	var sb strings.Builder
	sb.WriteString("tiny\t2\t0\tintermediary\tsrg\n")
	for c := range benchClasses {
		fmt.Fprintf(&sb, "c\tnet/minecraft/class_%d\tnet/minecraft/world/C%d\n", c, c)
		for m := range benchMembers {
			fmt.Fprintf(&sb, "\tf\tI\tfield_%d_%d\tf_%d_%d_\n", c, m, c, m)
			fmt.Fprintf(&sb, "\tm\t(Lnet/minecraft/class_%d;)V\tmethod_%d_%d\tm_%d_%d_\n", (c+1)%benchClasses, c, m, c, m)
		}
	}
	return sb.String()
}

func loadTree(b *testing.B) *mapping.Tree {
	b.Helper()
	tree, err := mapping.ParseTiny(strings.NewReader(tinyMappings()))
	if err != nil {
		b.Fatalf("ParseTiny failed: %v", err)
	}
	return tree
}

func buildTable(b *testing.B) *mapping.Table {
	b.Helper()
	table, err := mapping.NewBuilder(loadTree(b)).Build(mapping.Intermediary, mapping.Srg)
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	return table
}

// modClass is a mod class that references game classes and members.
func modClass(b *testing.B, i int) *testutil.ClassBuilder {
	cb := testutil.NewClass(b, fmt.Sprintf("com/example/bench/Mixin%d", i))
	for m := range benchMembers {
		c := (i*benchMembers + m) % benchClasses
		cb.FieldRef(fmt.Sprintf("net/minecraft/class_%d", c), fmt.Sprintf("field_%d_%d", c, m), "I").
			MethodRef(fmt.Sprintf("net/minecraft/class_%d", c), fmt.Sprintf("method_%d_%d", c, m),
				fmt.Sprintf("(Lnet/minecraft/class_%d;)V", (c+1)%benchClasses))
	}
	return cb
}

func modEntries(b *testing.B) []testutil.JarEntry {
	b.Helper()
	entries := []testutil.JarEntry{
		testutil.File(modmeta.DescriptorPath, `{"schemaVersion": 1, "id": "bench", "version": "1.0.0"}`),
	}
	for i := range benchArchiveClasses {
		entries = append(entries, modClass(b, i).Entry())
	}
	return entries
}

// BenchmarkParseTiny benchmarks reading a Tiny v2 mapping set.
func BenchmarkParseTiny(b *testing.B) {
	data := tinyMappings()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for b.Loop() {
		if _, err := mapping.ParseTiny(strings.NewReader(data)); err != nil {
			b.Fatalf("ParseTiny failed: %v", err)
		}
	}
}

// BenchmarkBuildTable benchmarks flattening a mapping tree into a table,
// including the name-only fallback indexes.
func BenchmarkBuildTable(b *testing.B) {
	tree := loadTree(b)

	b.ResetTimer()
	for b.Loop() {
		// A fresh builder each round, since tables are memoized.
		if _, err := mapping.NewBuilder(tree).Build(mapping.Intermediary, mapping.Srg); err != nil {
			b.Fatalf("Build failed: %v", err)
		}
	}
}

// BenchmarkRemapClass benchmarks the per-class hot path of a remap.
func BenchmarkRemapClass(b *testing.B) {
	table := buildTable(b)
	data := modClass(b, 7).Bytes()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for b.Loop() {
		cf, err := classfile.Parse(data)
		if err != nil {
			b.Fatalf("Parse failed: %v", err)
		}
		if _, err := classfile.Remap(cf, table); err != nil {
			b.Fatalf("Remap failed: %v", err)
		}
		if _, err := cf.Bytes(); err != nil {
			b.Fatalf("Bytes failed: %v", err)
		}
	}
}

// BenchmarkPipeline benchmarks rewriting a whole archive in memory.
func BenchmarkPipeline(b *testing.B) {
	table := buildTable(b)
	data := testutil.JarBytes(b, modEntries(b)...)
	p := transform.Rename(transform.NewClassRenamer(table, nil)).
		Configs(nil).
		Refmaps(nil).
		Widen(nil).
		Provenance(transform.NewProvenanceGenerator("bench"))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for b.Loop() {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			b.Fatalf("zip.NewReader failed: %v", err)
		}
		if err := p.Write(zr, io.Discard); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

// BenchmarkRemapCached benchmarks the startup path for an archive that was
// already remapped: metadata extraction plus the cache lookup.
func BenchmarkRemapCached(b *testing.B) {
	dir := b.TempDir()
	input := filepath.Join(dir, "bench.jar")
	testutil.WriteJar(b, input, modEntries(b)...)

	r, err := remap.New(remap.Options{
		CacheDir:     filepath.Join(dir, "cache"),
		Target:       mapping.Srg,
		Source:       mapping.Intermediary,
		RefmapSource: mapping.Intermediary,
	}, mapping.NewBuilder(loadTree(b)), nil, nil)
	if err != nil {
		b.Fatalf("remap.New failed: %v", err)
	}
	ctx := context.Background()
	if _, err := r.Remap(ctx, input); err != nil {
		b.Fatalf("initial Remap failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := r.Remap(ctx, input); err != nil {
			b.Fatalf("Remap failed: %v", err)
		}
	}
}
