// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"strings"

	"github.com/modbridge/modbridge/pkg/classfile"
)

type (
	// Table is an immutable rename table for one (from, to) namespace pair.
	// Lookups return their input when nothing is mapped.
	//
	// Member lookups try the owner-qualified key first and then fall back to
	// an index keyed by the bare member name. The fallback serves references
	// whose owner is not the declaring class (overrides, inherited access).
	// Names that map to more than one target are left out of that index.
	// Scoped restricts the fallback to owners related to known classes.
	Table struct {
		from Namespace
		to   Namespace

		known         map[string]struct{}
		classes       map[string]string
		fields        map[string]string
		fieldsByName  map[string]string
		methods       map[string]string
		methodsByName map[string]string

		fieldNames  map[string]string
		methodNames map[string]string
		conflicts   int
	}

	// TableStats summarizes a table for logging.
	TableStats struct {
		Classes   int
		Fields    int
		Methods   int
		Conflicts int
	}
)

var _ classfile.Namer = (*Table)(nil)

func newTable(from, to Namespace) *Table {
	return &Table{
		from:          from,
		to:            to,
		known:         make(map[string]struct{}),
		classes:       make(map[string]string),
		fields:        make(map[string]string),
		fieldsByName:  make(map[string]string),
		methods:       make(map[string]string),
		methodsByName: make(map[string]string),
		fieldNames:    make(map[string]string),
		methodNames:   make(map[string]string),
	}
}

// putFirst stores key only when absent: the first inserted mapping wins.
func putFirst(m map[string]string, key, value string) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// From returns the source namespace.
func (t *Table) From() Namespace { return t.from }

// To returns the destination namespace.
func (t *Table) To() Namespace { return t.to }

// Stats returns entry counts.
func (t *Table) Stats() TableStats {
	return TableStats{
		Classes:   len(t.classes),
		Fields:    len(t.fields),
		Methods:   len(t.methods),
		Conflicts: t.conflicts,
	}
}

// Empty reports whether the table renames nothing.
func (t *Table) Empty() bool {
	return len(t.classes) == 0 && len(t.fields) == 0 && len(t.methods) == 0
}

// Class maps an internal class name. Nested classes without an entry of
// their own follow their outer class.
func (t *Table) Class(name string) string {
	if m, ok := t.classes[name]; ok {
		return m
	}
	if i := strings.LastIndexByte(name, '$'); i > 0 {
		outer := name[:i]
		if mapped := t.Class(outer); mapped != outer {
			return mapped + name[i:]
		}
	}
	return name
}

// Knows reports whether the source namespace declares the class, mapped or
// not. Nested classes are known when their outermost class is.
func (t *Table) Knows(name string) bool {
	for {
		if _, ok := t.known[name]; ok {
			return true
		}
		i := strings.LastIndexByte(name, '$')
		if i <= 0 {
			return false
		}
		name = name[:i]
	}
}

// HasClass reports whether the class has an explicit entry.
func (t *Table) HasClass(name string) bool {
	_, ok := t.classes[name]
	return ok
}

// Field maps a field name. desc may be empty.
func (t *Table) Field(owner, name, desc string) string {
	if m, ok := t.ownedField(owner, name, desc); ok {
		return m
	}
	if m, ok := t.fieldNames[name]; ok {
		return m
	}
	return name
}

func (t *Table) ownedField(owner, name, desc string) (string, bool) {
	if desc != "" {
		if m, ok := t.fields[owner+"."+name+":"+desc]; ok {
			return m, true
		}
	}
	m, ok := t.fieldsByName[owner+"."+name]
	return m, ok
}

// Method maps a method name. desc may be empty, which matches the first
// overload registered for the owner.
func (t *Table) Method(owner, name, desc string) string {
	if m, ok := t.ownedMethod(owner, name, desc); ok {
		return m
	}
	if m, ok := t.methodNames[name]; ok {
		return m
	}
	return name
}

func (t *Table) ownedMethod(owner, name, desc string) (string, bool) {
	if desc != "" {
		m, ok := t.methods[owner+"."+name+desc]
		return m, ok
	}
	m, ok := t.methodsByName[owner+"."+name]
	return m, ok
}

// Descriptor maps every class name inside a field or method descriptor.
func (t *Table) Descriptor(desc string) string {
	return classfile.RemapDescriptor(desc, t.Class)
}

// Signature maps every class name inside a generic signature.
func (t *Table) Signature(sig string) (string, error) {
	return classfile.RemapSignature(sig, t.Class)
}

func (t *Table) add(def ClassDef) {
	t.known[def.Original] = struct{}{}
	if def.Original != def.Mapped {
		putFirst(t.classes, def.Original, def.Mapped)
	}
	for _, f := range def.Fields {
		if f.Original == f.Mapped {
			continue
		}
		if f.Desc != "" {
			putFirst(t.fields, def.Original+"."+f.Original+":"+f.Desc, f.Mapped)
		}
		putFirst(t.fieldsByName, def.Original+"."+f.Original, f.Mapped)
	}
	for _, m := range def.Methods {
		if m.Original == m.Mapped {
			continue
		}
		putFirst(t.methods, def.Original+"."+m.Original+m.Desc, m.Mapped)
		putFirst(t.methodsByName, def.Original+"."+m.Original, m.Mapped)
	}
}

// index builds the bare-name fallback indexes, dropping names with
// conflicting targets.
func (t *Table) index(defs []ClassDef) {
	t.conflicts = 0
	t.conflicts += buildNameIndex(t.fieldNames, defs, func(d ClassDef) []MemberDef { return d.Fields })
	t.conflicts += buildNameIndex(t.methodNames, defs, func(d ClassDef) []MemberDef { return d.Methods })
}

func buildNameIndex(index map[string]string, defs []ClassDef, members func(ClassDef) []MemberDef) int {
	ambiguous := make(map[string]bool)
	for _, d := range defs {
		for _, m := range members(d) {
			if prev, ok := index[m.Original]; ok {
				if prev != m.Mapped {
					ambiguous[m.Original] = true
				}
				continue
			}
			index[m.Original] = m.Mapped
		}
	}
	for name := range ambiguous {
		delete(index, name)
	}
	for name, mapped := range index {
		if name == mapped {
			delete(index, name)
		}
	}
	return len(ambiguous)
}
