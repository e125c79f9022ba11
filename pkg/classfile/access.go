// SPDX-License-Identifier: MPL-2.0

package classfile

import "encoding/binary"

// Access flags (JVMS 4.1, 4.5, 4.6).
const (
	AccPublic     uint16 = 0x0001
	AccPrivate    uint16 = 0x0002
	AccProtected  uint16 = 0x0004
	AccStatic     uint16 = 0x0008
	AccFinal      uint16 = 0x0010
	AccSuper      uint16 = 0x0020
	AccVolatile   uint16 = 0x0040
	AccTransient  uint16 = 0x0080
	AccNative     uint16 = 0x0100
	AccInterface  uint16 = 0x0200
	AccAbstract   uint16 = 0x0400
	AccSynthetic  uint16 = 0x1000
	AccAnnotation uint16 = 0x2000
	AccEnum       uint16 = 0x4000
)

const visibility = AccPublic | AccPrivate | AccProtected

// MakePublic replaces the visibility bits with public.
func MakePublic(flags uint16) uint16 {
	return flags&^visibility | AccPublic
}

// MakeProtected raises private or package-private visibility to protected.
// Public members are left alone.
func MakeProtected(flags uint16) uint16 {
	if flags&AccPublic != 0 {
		return flags
	}
	return flags&^visibility | AccProtected
}

// RemoveFinal clears the final bit.
func RemoveFinal(flags uint16) uint16 {
	return flags &^ AccFinal
}

// UpdateInnerClassAccess rewrites the InnerClasses entries describing the
// named class with fn. It reports whether an entry was found.
func (cf *ClassFile) UpdateInnerClassAccess(name string, fn func(uint16) uint16) bool {
	attr := cf.FindAttribute(cf.Attributes, attrInnerClasses)
	if attr == nil {
		return false
	}
	c := &cursor{b: attr.Info}
	n := int(c.u16())
	found := false
	for range n {
		inner := c.u16()
		c.skip(4)
		flagsAt := c.off
		c.skip(2)
		if c.err != nil {
			return found
		}
		if in, err := cf.Pool.ClassName(inner); err == nil && in == name {
			flags := binary.BigEndian.Uint16(attr.Info[flagsAt:])
			binary.BigEndian.PutUint16(attr.Info[flagsAt:], fn(flags))
			found = true
		}
	}
	return found
}

// InnerClassNames returns the inner class names listed in the class's
// InnerClasses attribute.
func (cf *ClassFile) InnerClassNames() []string {
	attr := cf.FindAttribute(cf.Attributes, attrInnerClasses)
	if attr == nil {
		return nil
	}
	c := &cursor{b: attr.Info}
	n := int(c.u16())
	names := make([]string, 0, n)
	for range n {
		inner := c.u16()
		c.skip(6)
		if c.err != nil {
			break
		}
		if name, err := cf.Pool.ClassName(inner); err == nil {
			names = append(names, name)
		}
	}
	return names
}
