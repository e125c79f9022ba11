// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/modbridge/modbridge/pkg/classfile"
)

// ArchiveTime is the modification time stamped on entries written by WriteJar.
var ArchiveTime = time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)

type (
	// JarEntry is one file of a test archive.
	JarEntry struct {
		Name string
		Data []byte
	}

	// ClassBuilder assembles a class file for tests.
	ClassBuilder struct {
		t  testing.TB
		cf *classfile.ClassFile
	}
)

// File is shorthand for a text entry.
func File(name, content string) JarEntry {
	return JarEntry{Name: name, Data: []byte(content)}
}

// WriteJar writes entries to path in the given order. Parent directories are created.
func WriteJar(t testing.TB, path string, entries ...JarEntry) string {
	t.Helper()
	MustWriteFile(t, path, JarBytes(t, entries...))
	return path
}

// JarBytes encodes entries as a zip archive.
func JarBytes(t testing.TB, entries ...JarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: ArchiveTime})
		if err != nil {
			t.Fatalf("failed to add %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("failed to write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish jar: %v", err)
	}
	return buf.Bytes()
}

// ReadJar returns the entries of the archive at path in archive order.
func ReadJar(t testing.TB, path string) []JarEntry {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open jar %s: %v", path, err)
	}
	defer MustClose(t, zr)

	entries := make([]JarEntry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		MustClose(t, rc)
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		entries = append(entries, JarEntry{Name: f.Name, Data: data})
	}
	return entries
}

// JarEntryData returns the content of the named entry, failing the test if absent.
func JarEntryData(t testing.TB, entries []JarEntry, name string) []byte {
	t.Helper()
	for _, e := range entries {
		if e.Name == name {
			return e.Data
		}
	}
	t.Fatalf("entry %s not found", name)
	return nil
}

// HasJarEntry reports whether the named entry exists.
func HasJarEntry(entries []JarEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(t testing.TB, name string) *ClassBuilder {
	t.Helper()
	cf, err := classfile.New(name, "java/lang/Object", classfile.AccPublic|classfile.AccSuper)
	if err != nil {
		t.Fatalf("failed to create class %s: %v", name, err)
	}
	return &ClassBuilder{t: t, cf: cf}
}

// Access replaces the class access flags.
func (b *ClassBuilder) Access(flags uint16) *ClassBuilder {
	b.cf.Access = flags
	return b
}

// Extends replaces the super class.
func (b *ClassBuilder) Extends(super string) *ClassBuilder {
	b.t.Helper()
	idx, err := b.cf.Pool.AddClass(super)
	if err != nil {
		b.t.Fatalf("failed to set super class %s: %v", super, err)
	}
	b.cf.Super = idx
	return b
}

// Implements adds interfaces.
func (b *ClassBuilder) Implements(ifaces ...string) *ClassBuilder {
	b.t.Helper()
	for _, name := range ifaces {
		idx, err := b.cf.Pool.AddClass(name)
		if err != nil {
			b.t.Fatalf("failed to add interface %s: %v", name, err)
		}
		b.cf.Interfaces = append(b.cf.Interfaces, idx)
	}
	return b
}

// Field declares a field.
func (b *ClassBuilder) Field(access uint16, name, desc string) *ClassBuilder {
	b.t.Helper()
	if err := b.cf.AddField(access, name, desc); err != nil {
		b.t.Fatalf("failed to add field %s: %v", name, err)
	}
	return b
}

// Method declares a method without code.
func (b *ClassBuilder) Method(access uint16, name, desc string) *ClassBuilder {
	b.t.Helper()
	if err := b.cf.AddMethod(access, name, desc); err != nil {
		b.t.Fatalf("failed to add method %s: %v", name, err)
	}
	return b
}

// FieldRef adds a field reference to the constant pool.
func (b *ClassBuilder) FieldRef(owner, name, desc string) *ClassBuilder {
	b.t.Helper()
	if _, err := b.cf.Pool.AddFieldref(owner, name, desc); err != nil {
		b.t.Fatalf("failed to add field reference: %v", err)
	}
	return b
}

// MethodRef adds a method reference to the constant pool.
func (b *ClassBuilder) MethodRef(owner, name, desc string) *ClassBuilder {
	b.t.Helper()
	if _, err := b.cf.Pool.AddMethodref(owner, name, desc); err != nil {
		b.t.Fatalf("failed to add method reference: %v", err)
	}
	return b
}

// Class returns the class file under construction.
func (b *ClassBuilder) Class() *classfile.ClassFile {
	return b.cf
}

// Bytes encodes the class.
func (b *ClassBuilder) Bytes() []byte {
	b.t.Helper()
	data, err := b.cf.Bytes()
	if err != nil {
		b.t.Fatalf("failed to encode class: %v", err)
	}
	return data
}

// Entry returns the class as a jar entry at its conventional path.
func (b *ClassBuilder) Entry() JarEntry {
	b.t.Helper()
	name, err := b.cf.Name()
	if err != nil {
		b.t.Fatalf("failed to read class name: %v", err)
	}
	return JarEntry{Name: name + ".class", Data: b.Bytes()}
}

// ParseClass decodes class bytes, failing the test on error.
func ParseClass(t testing.TB, data []byte) *classfile.ClassFile {
	t.Helper()
	cf, err := classfile.Parse(data)
	if err != nil {
		t.Fatalf("failed to parse class: %v", err)
	}
	return cf
}
