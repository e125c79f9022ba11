// SPDX-License-Identifier: MPL-2.0

package mapping

import "github.com/modbridge/modbridge/pkg/classfile"

type (
	// Hierarchy reports the direct supertypes (super class and interfaces)
	// of classes the mappings do not cover. It returns nil for classes it
	// cannot see.
	Hierarchy interface {
		Supertypes(class string) []string
	}

	// ScopedTable is a Table whose bare-name fallback only applies to owners
	// that the source namespace declares or that inherit from such a class.
	// Members of unrelated classes keep their names even when another class
	// maps the same name. It memoizes hierarchy answers and is not safe for
	// concurrent use.
	ScopedTable struct {
		*Table
		hierarchy Hierarchy
		related   map[string]bool
	}
)

var _ classfile.Namer = (*ScopedTable)(nil)

// Scoped returns a ScopedTable over t. A nil h treats every class the
// mappings do not know as unrelated.
func (t *Table) Scoped(h Hierarchy) *ScopedTable {
	return &ScopedTable{Table: t, hierarchy: h, related: make(map[string]bool)}
}

// Field maps a field name.
func (s *ScopedTable) Field(owner, name, desc string) string {
	if m, ok := s.ownedField(owner, name, desc); ok {
		return m
	}
	if m, ok := s.fieldNames[name]; ok && s.relates(owner) {
		return m
	}
	return name
}

// Method maps a method name.
func (s *ScopedTable) Method(owner, name, desc string) string {
	if m, ok := s.ownedMethod(owner, name, desc); ok {
		return m
	}
	if m, ok := s.methodNames[name]; ok && s.relates(owner) {
		return m
	}
	return name
}

// relates reports whether class is known to the mappings or inherits from
// a known class.
func (s *ScopedTable) relates(class string) bool {
	if s.Knows(class) {
		return true
	}
	if r, ok := s.related[class]; ok {
		return r
	}
	// Cycles in malformed input end here.
	s.related[class] = false
	if s.hierarchy == nil {
		return false
	}
	for _, super := range s.hierarchy.Supertypes(class) {
		if s.relates(super) {
			s.related[class] = true
			return true
		}
	}
	return false
}
