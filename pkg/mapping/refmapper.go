// SPDX-License-Identifier: MPL-2.0

package mapping

import "strings"

// ReferenceMapper translates the member references stored in mixin
// reference maps. A reference is one of:
//
//	Lowner;name(desc)ret   method with owner
//	Lowner;name:desc       field with owner
//	Lowner;name            member with owner, no descriptor
//	name(desc)ret          method
//	name:desc              field
//	owner/Name             class
//
// Anything the table does not know is returned unchanged.
type ReferenceMapper struct {
	table *Table
}

// NewReferenceMapper creates a ReferenceMapper over t.
func NewReferenceMapper(t *Table) *ReferenceMapper {
	return &ReferenceMapper{table: t}
}

// Table returns the backing table.
func (m *ReferenceMapper) Table() *Table {
	return m.table
}

// Map returns ref expressed in the destination namespace. mixinClass is the
// mixin the reference belongs to; it is used as the owner hint for bare
// member references that carry none.
func (m *ReferenceMapper) Map(mixinClass, ref string) string {
	if ref == "" || m.table == nil || m.table.Empty() {
		return ref
	}

	owner, member, hasOwner := splitOwner(ref)
	if !hasOwner {
		if !strings.ContainsAny(ref, "(:") && strings.Contains(ref, "/") {
			return m.table.Class(ref)
		}
		return m.mapMember(mixinClass, ref)
	}
	mappedOwner := m.table.Class(owner)
	if member == "" {
		return "L" + mappedOwner + ";"
	}
	return "L" + mappedOwner + ";" + m.mapMember(owner, member)
}

func (m *ReferenceMapper) mapMember(owner, member string) string {
	if i := strings.IndexByte(member, '('); i >= 0 {
		name, desc := member[:i], member[i:]
		mapped := name
		if !isSpecialMethod(name) {
			mapped = m.table.Method(owner, name, desc)
		}
		return mapped + m.table.Descriptor(desc)
	}
	if i := strings.IndexByte(member, ':'); i >= 0 {
		name, desc := member[:i], member[i+1:]
		return m.table.Field(owner, name, desc) + ":" + m.table.Descriptor(desc)
	}
	if isSpecialMethod(member) {
		return member
	}
	if mapped := m.table.Method(owner, member, ""); mapped != member {
		return mapped
	}
	return m.table.Field(owner, member, "")
}

// splitOwner splits "Lowner;rest". ok is false for references without an owner.
func splitOwner(ref string) (owner, rest string, ok bool) {
	if len(ref) < 3 || ref[0] != 'L' {
		return "", ref, false
	}
	semi := strings.IndexByte(ref, ';')
	if semi < 2 {
		return "", ref, false
	}
	// A '(' or ':' before the ';' means the ';' belongs to a descriptor.
	if p := strings.IndexAny(ref, "(:"); p >= 0 && p < semi {
		return "", ref, false
	}
	return ref[1:semi], ref[semi+1:], true
}

func isSpecialMethod(name string) bool {
	return name == "<init>" || name == "<clinit>"
}
