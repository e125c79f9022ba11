// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"io/fs"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/modbridge/modbridge/pkg/classfile"
	"github.com/modbridge/modbridge/pkg/mapping"
)

const servicesPrefix = "META-INF/services/"

var versionedPrefix = regexp.MustCompile(`^META-INF/versions/[0-9]+/`)

type (
	// ClassRenamer remaps the symbols of every class file and moves each class
	// to the path of its mapped name. Service provider files are renamed and
	// rewritten along with the classes they name.
	//
	// Member names are only renamed by bare name for classes that the mappings
	// declare or that inherit from one; the class hierarchy of the archive is
	// read from the bound archive as needed.
	ClassRenamer struct {
		table     *mapping.Table
		scoped    *mapping.ScopedTable
		hierarchy *archiveHierarchy
		logger    *log.Logger
	}

	// archiveHierarchy answers supertype queries from the class entries of
	// one archive. Classes already streamed are answered from memory.
	archiveHierarchy struct {
		fsys fs.FS
		seen map[string][]string
	}
)

var _ ArchiveBinder = (*ClassRenamer)(nil)

// NewClassRenamer creates a renamer over t.
func NewClassRenamer(t *mapping.Table, logger *log.Logger) *ClassRenamer {
	r := &ClassRenamer{table: t, hierarchy: &archiveHierarchy{}, logger: orDiscard(logger)}
	r.BindArchive(nil)
	return r
}

// BindArchive implements ArchiveBinder.
func (r *ClassRenamer) BindArchive(fsys fs.FS) {
	r.hierarchy.fsys = fsys
	r.hierarchy.seen = make(map[string][]string)
	if r.table != nil {
		r.scoped = r.table.Scoped(r.hierarchy)
	}
}

// Supertypes implements mapping.Hierarchy.
func (h *archiveHierarchy) Supertypes(class string) []string {
	if st, ok := h.seen[class]; ok {
		return st
	}
	h.seen[class] = nil
	if h.fsys == nil {
		return nil
	}
	data, err := fs.ReadFile(h.fsys, class+".class")
	if err != nil {
		return nil
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil
	}
	st, err := cf.Supertypes()
	if err != nil {
		return nil
	}
	h.seen[class] = st
	return st
}

// Transform implements Transformer.
func (r *ClassRenamer) Transform(e Entry) (Entry, error) {
	if r.table == nil || r.table.Empty() {
		return e, nil
	}
	switch {
	case e.IsClass():
		return r.class(e)
	case strings.HasPrefix(e.Name, servicesPrefix):
		return r.service(e), nil
	}
	return e, nil
}

func (r *ClassRenamer) class(e Entry) (Entry, error) {
	if !classfile.IsClass(e.Data) {
		return e, nil
	}
	cf, err := classfile.Parse(e.Data)
	if err != nil {
		return e, err
	}
	name, err := cf.Name()
	if err != nil {
		return e, err
	}
	if st, err := cf.Supertypes(); err == nil {
		r.hierarchy.seen[name] = st
	}
	changed, err := classfile.Remap(cf, r.scoped)
	if err != nil {
		return e, err
	}
	if changed {
		if e.Data, err = cf.Bytes(); err != nil {
			return e, err
		}
	}
	prefix, path := SplitVersioned(e.Name)
	if path == name+".class" {
		if mapped := r.table.Class(name); mapped != name {
			e.Name = prefix + mapped + ".class"
			r.logger.Debug("relocated class", "from", name, "to", mapped)
		}
	}
	return e, nil
}

// service renames META-INF/services/<interface> and remaps each listed
// implementation. Comments and blank lines are kept.
func (r *ClassRenamer) service(e Entry) Entry {
	iface := strings.TrimPrefix(e.Name, servicesPrefix)
	if iface == "" || strings.Contains(iface, "/") {
		return e
	}
	e.Name = servicesPrefix + r.binaryName(iface)

	lines := strings.Split(string(e.Data), "\n")
	changed := false
	for i, line := range lines {
		code, comment, hasComment := strings.Cut(line, "#")
		impl := strings.TrimSpace(code)
		if impl == "" {
			continue
		}
		mapped := r.binaryName(impl)
		if mapped == impl {
			continue
		}
		changed = true
		lines[i] = strings.Replace(code, impl, mapped, 1)
		if hasComment {
			lines[i] += "#" + comment
		}
	}
	if changed {
		e.Data = []byte(strings.Join(lines, "\n"))
	}
	return e
}

// binaryName maps a dotted class name.
func (r *ClassRenamer) binaryName(dotted string) string {
	internal := strings.ReplaceAll(dotted, ".", "/")
	return strings.ReplaceAll(r.table.Class(internal), "/", ".")
}

// SplitVersioned splits a multi-release prefix ("META-INF/versions/17/")
// from an entry name.
func SplitVersioned(name string) (prefix, path string) {
	if loc := versionedPrefix.FindStringIndex(name); loc != nil {
		return name[:loc[1]], name[loc[1]:]
	}
	return "", name
}

// ClassName returns the internal class name an entry path stands for.
func ClassName(entry string) (string, bool) {
	_, path := SplitVersioned(entry)
	name, ok := strings.CutSuffix(path, ".class")
	return name, ok && name != ""
}
