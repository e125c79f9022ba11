// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"slices"

	"github.com/modbridge/modbridge/pkg/classfile"
)

type (
	// Resolver exposes the known classes of a mapping set with their
	// per-namespace names. Implementations are read-only for callers.
	Resolver interface {
		// Namespaces lists the namespaces the resolver can supply.
		Namespaces() []Namespace
		// Classes returns every known class with names and member descriptors
		// expressed in from, and mapped names in to.
		Classes(from, to Namespace) ([]ClassDef, error)
	}

	// ClassDef is one class as seen from a (from, to) namespace pair.
	ClassDef struct {
		Original string
		Mapped   string
		Fields   []MemberDef
		Methods  []MemberDef
	}

	// MemberDef is a field or method rename. Desc is in the source namespace.
	MemberDef struct {
		Original string
		Mapped   string
		Desc     string
	}

	// Tree is an in-memory mapping set. Member descriptors are stored in the
	// first namespace; a missing name in any namespace falls back to the name
	// in the first namespace.
	Tree struct {
		namespaces []Namespace
		classes    []*ClassNode
		byName     map[string]*ClassNode
	}

	// ClassNode is a class of a Tree.
	ClassNode struct {
		tree    *Tree
		names   []string
		fields  []memberNode
		methods []memberNode
	}

	memberNode struct {
		names []string
		desc  string
	}
)

// NewTree returns an empty tree over the given namespaces. The first namespace
// is the one descriptors are written in.
func NewTree(namespaces ...Namespace) *Tree {
	return &Tree{
		namespaces: slices.Clone(namespaces),
		byName:     make(map[string]*ClassNode),
	}
}

// Namespaces returns the namespaces of the tree in column order.
func (t *Tree) Namespaces() []Namespace {
	return slices.Clone(t.namespaces)
}

// Len returns the number of classes in the tree.
func (t *Tree) Len() int {
	return len(t.classes)
}

// AddClass adds a class with one name per namespace. Adding a class whose
// first-namespace name already exists returns the existing node.
func (t *Tree) AddClass(names ...string) *ClassNode {
	names = t.pad(names)
	if c, ok := t.byName[names[0]]; ok {
		return c
	}
	c := &ClassNode{tree: t, names: names}
	t.classes = append(t.classes, c)
	t.byName[names[0]] = c
	return c
}

// Class returns the class with the given first-namespace name.
func (t *Tree) Class(name string) (*ClassNode, bool) {
	c, ok := t.byName[name]
	return c, ok
}

func (t *Tree) pad(names []string) []string {
	out := make([]string, len(t.namespaces))
	copy(out, names)
	return out
}

// AddField adds a field. desc is in the tree's first namespace.
func (c *ClassNode) AddField(desc string, names ...string) *ClassNode {
	c.fields = append(c.fields, memberNode{names: c.tree.pad(names), desc: desc})
	return c
}

// AddMethod adds a method. desc is in the tree's first namespace.
func (c *ClassNode) AddMethod(desc string, names ...string) *ClassNode {
	c.methods = append(c.methods, memberNode{names: c.tree.pad(names), desc: desc})
	return c
}

// Name returns the class name in the namespace column i, falling back to the
// first namespace.
func (c *ClassNode) Name(i int) string {
	return nameAt(c.names, i)
}

func nameAt(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return names[0]
}

func (t *Tree) column(ns Namespace) int {
	return slices.Index(t.namespaces, ns)
}

// Classes implements Resolver.
func (t *Tree) Classes(from, to Namespace) ([]ClassDef, error) {
	src, dst := t.column(from), t.column(to)
	for _, side := range []struct {
		ns  Namespace
		col int
	}{{from, src}, {to, dst}} {
		if side.col < 0 {
			return nil, &NamespaceUnavailableError{Namespace: side.ns, Known: t.Namespaces()}
		}
	}

	// Descriptors are stored in column 0 and must be expressed in from.
	toSource := func(name string) string { return name }
	if src != 0 {
		toSource = func(name string) string {
			if c, ok := t.byName[name]; ok {
				return c.Name(src)
			}
			return name
		}
	}

	defs := make([]ClassDef, 0, len(t.classes))
	for _, c := range t.classes {
		def := ClassDef{
			Original: c.Name(src),
			Mapped:   c.Name(dst),
			Fields:   make([]MemberDef, 0, len(c.fields)),
			Methods:  make([]MemberDef, 0, len(c.methods)),
		}
		for _, f := range c.fields {
			def.Fields = append(def.Fields, MemberDef{
				Original: nameAt(f.names, src),
				Mapped:   nameAt(f.names, dst),
				Desc:     classfile.RemapDescriptor(f.desc, toSource),
			})
		}
		for _, m := range c.methods {
			def.Methods = append(def.Methods, MemberDef{
				Original: nameAt(m.names, src),
				Mapped:   nameAt(m.names, dst),
				Desc:     classfile.RemapDescriptor(m.desc, toSource),
			})
		}
		defs = append(defs, def)
	}
	return defs, nil
}
