// SPDX-License-Identifier: MPL-2.0

package classfile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	attrSignature              = "Signature"
	attrCode                   = "Code"
	attrLocalVariableTable     = "LocalVariableTable"
	attrLocalVariableTypeTable = "LocalVariableTypeTable"
	attrInnerClasses           = "InnerClasses"
	attrEnclosingMethod        = "EnclosingMethod"
	attrBootstrapMethods       = "BootstrapMethods"
	attrRecord                 = "Record"
	attrAnnotationDefault      = "AnnotationDefault"

	lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"
)

type (
	// Namer maps names from the source namespace to the destination namespace.
	// Every method returns its input when no mapping exists. Descriptors
	// passed to Field and Method are in the source namespace.
	Namer interface {
		Class(name string) string
		Field(owner, name, desc string) string
		Method(owner, name, desc string) string
	}

	remapper struct {
		cf    *ClassFile
		pool  *Pool
		namer Namer
		owner string
		// original class names by Class entry index, captured before any retargeting
		classes map[uint16]string
		changed bool
	}

	// cursor walks attribute payloads. Errors are sticky.
	cursor struct {
		b   []byte
		off int
		err error
	}
)

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.off+n > len(c.b) {
		c.err = ErrTruncated
		return false
	}
	return true
}

func (c *cursor) u8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.b[c.off]
	c.off++
	return v
}

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(c.b[c.off:])
	c.off += 2
	return v
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.b[c.off:])
	c.off += 4
	return v
}

func (c *cursor) skip(n int) {
	if c.need(n) {
		c.off += n
	}
}

// slot returns the offset of the next u16 index and advances past it.
func (c *cursor) slot() int {
	off := c.off
	c.skip(2)
	return off
}

// Remap renames every class, field and method reference in cf through n.
// It reports whether anything changed. On error cf may be partially rewritten
// and must be discarded.
func Remap(cf *ClassFile, n Namer) (bool, error) {
	owner, err := cf.Name()
	if err != nil {
		return false, err
	}
	r := &remapper{cf: cf, pool: cf.Pool, namer: n, owner: owner, classes: make(map[uint16]string)}
	for i := 1; i < r.pool.Len(); i++ {
		if c := r.pool.entries[i]; c.Tag == TagClass {
			name, err := r.pool.Utf8(c.A)
			if err != nil {
				return false, fmt.Errorf("constant pool entry %d: %w", i, err)
			}
			r.classes[uint16(i)] = name
		}
	}
	lambdas, err := r.lambdaNames()
	if err != nil {
		return false, err
	}
	if err := r.constants(lambdas); err != nil {
		return false, err
	}
	for i := range cf.Fields {
		if err := r.member(&cf.Fields[i], false); err != nil {
			return false, err
		}
	}
	for i := range cf.Methods {
		if err := r.member(&cf.Methods[i], true); err != nil {
			return false, err
		}
	}
	if err := r.attributes(cf.Attributes); err != nil {
		return false, err
	}
	return r.changed, nil
}

func (r *remapper) mapClass(name string) string {
	if strings.HasPrefix(name, "[") {
		return RemapDescriptor(name, r.namer.Class)
	}
	return r.namer.Class(name)
}

func (r *remapper) desc(d string) string {
	return RemapDescriptor(d, r.namer.Class)
}

func (r *remapper) signature(s string) string {
	out, err := RemapSignature(s, r.namer.Class)
	if err != nil {
		return s
	}
	return out
}

// utf8 returns an index for s, reusing cur when it already holds s.
func (r *remapper) utf8(cur uint16, s string) (uint16, error) {
	if old, err := r.pool.Utf8(cur); err == nil && old == s {
		return cur, nil
	}
	i, err := r.pool.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	r.changed = true
	return i, nil
}

// patch rewrites the UTF8 index stored at b[off:] through fn.
func (r *remapper) patch(b []byte, off int, fn func(string) string) error {
	cur := binary.BigEndian.Uint16(b[off:])
	old, err := r.pool.Utf8(cur)
	if err != nil {
		return err
	}
	nu := fn(old)
	if nu == old {
		return nil
	}
	i, err := r.utf8(cur, nu)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b[off:], i)
	return nil
}

// lambdaNames resolves the interface method names of LambdaMetafactory call
// sites, keyed by InvokeDynamic entry index.
func (r *remapper) lambdaNames() (map[uint16]string, error) {
	attr := r.cf.FindAttribute(r.cf.Attributes, attrBootstrapMethods)
	if attr == nil {
		return nil, nil
	}
	type bootstrap struct {
		handle uint16
		args   []uint16
	}
	c := &cursor{b: attr.Info}
	n := int(c.u16())
	methods := make([]bootstrap, 0, n)
	for range n {
		bm := bootstrap{handle: c.u16()}
		argc := int(c.u16())
		for range argc {
			bm.args = append(bm.args, c.u16())
		}
		methods = append(methods, bm)
	}
	if c.err != nil {
		return nil, fmt.Errorf("%s: %w", attrBootstrapMethods, c.err)
	}

	names := make(map[uint16]string)
	for i := 1; i < r.pool.Len(); i++ {
		indy := r.pool.entries[i]
		if indy.Tag != TagInvokeDynamic || int(indy.A) >= len(methods) {
			continue
		}
		bm := methods[indy.A]
		handle, err := r.pool.Get(bm.handle)
		if err != nil || handle.Tag != TagMethodHandle || len(bm.args) == 0 {
			continue
		}
		owner, factory, _, err := r.pool.Ref(handle.A)
		if err != nil || owner != lambdaMetafactory || (factory != "metafactory" && factory != "altMetafactory") {
			continue
		}
		samType, err := r.pool.Get(bm.args[0])
		if err != nil || samType.Tag != TagMethodType {
			continue
		}
		samDesc, err := r.pool.Utf8(samType.A)
		if err != nil {
			continue
		}
		name, desc, err := r.pool.NameAndType(indy.B)
		if err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		iface := ReturnClass(desc)
		if iface == "" {
			continue
		}
		if mapped := r.namer.Method(iface, name, samDesc); mapped != name {
			names[uint16(i)] = mapped
		}
	}
	return names, nil
}

func (r *remapper) constants(lambdas map[uint16]string) error {
	limit := r.pool.Len()
	for i := 1; i < limit; i++ {
		idx := uint16(i)
		c := r.pool.entries[i]
		var err error
		switch c.Tag {
		case TagClass:
			err = r.classConstant(idx)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			err = r.refConstant(idx, c)
		case TagMethodType:
			err = r.methodTypeConstant(idx, c)
		case TagInvokeDynamic, TagDynamic:
			err = r.dynamicConstant(idx, c, lambdas[idx])
		}
		if err != nil {
			return fmt.Errorf("constant pool entry %d: %w", i, err)
		}
	}
	return nil
}

func (r *remapper) classConstant(i uint16) error {
	name := r.classes[i]
	mapped := r.mapClass(name)
	if mapped == name {
		return nil
	}
	u, err := r.utf8(r.pool.entries[i].A, mapped)
	if err != nil {
		return err
	}
	r.pool.setA(i, u)
	return nil
}

func (r *remapper) refConstant(i uint16, c Constant) error {
	owner, ok := r.classes[c.A]
	if !ok {
		return fmt.Errorf("%w: member reference owner %d", ErrBadIndex, c.A)
	}
	name, desc, err := r.pool.NameAndType(c.B)
	if err != nil {
		return err
	}
	newName := name
	if !strings.HasPrefix(owner, "[") {
		if c.Tag == TagFieldref {
			newName = r.namer.Field(owner, name, desc)
		} else {
			newName = r.namer.Method(owner, name, desc)
		}
	}
	return r.retargetNameAndType(i, name, desc, newName, r.desc(desc))
}

func (r *remapper) retargetNameAndType(i uint16, name, desc, newName, newDesc string) error {
	if newName == name && newDesc == desc {
		return nil
	}
	nat, err := r.pool.AddNameAndType(newName, newDesc)
	if err != nil {
		return err
	}
	r.pool.setB(i, nat)
	r.changed = true
	return nil
}

func (r *remapper) methodTypeConstant(i uint16, c Constant) error {
	desc, err := r.pool.Utf8(c.A)
	if err != nil {
		return err
	}
	mapped := r.desc(desc)
	if mapped == desc {
		return nil
	}
	u, err := r.utf8(c.A, mapped)
	if err != nil {
		return err
	}
	r.pool.setA(i, u)
	return nil
}

func (r *remapper) dynamicConstant(i uint16, c Constant, lambdaName string) error {
	name, desc, err := r.pool.NameAndType(c.B)
	if err != nil {
		return err
	}
	newName := name
	if lambdaName != "" {
		newName = lambdaName
	}
	return r.retargetNameAndType(i, name, desc, newName, r.desc(desc))
}

func (r *remapper) member(m *Member, method bool) error {
	name, desc, err := r.cf.MemberSignature(m)
	if err != nil {
		return err
	}
	newName := name
	switch {
	case !method:
		newName = r.namer.Field(r.owner, name, desc)
	case name != "<init>" && name != "<clinit>":
		newName = r.namer.Method(r.owner, name, desc)
	}
	if m.Name, err = r.utf8(m.Name, newName); err != nil {
		return err
	}
	if m.Descriptor, err = r.utf8(m.Descriptor, r.desc(desc)); err != nil {
		return err
	}
	if err := r.attributes(m.Attributes); err != nil {
		return fmt.Errorf("member %s%s: %w", name, desc, err)
	}
	return nil
}

func (r *remapper) attributes(attrs []Attribute) error {
	for _, a := range attrs {
		name, err := r.pool.Utf8(a.Name)
		if err != nil {
			return err
		}
		if err := r.attribute(name, a.Info); err != nil {
			return fmt.Errorf("%s attribute: %w", name, err)
		}
	}
	return nil
}

func (r *remapper) attribute(name string, info []byte) error {
	c := &cursor{b: info}
	switch name {
	case attrSignature:
		off := c.slot()
		if c.err != nil {
			return c.err
		}
		return r.patch(info, off, r.signature)
	case attrCode:
		return r.code(c)
	case attrLocalVariableTable, attrLocalVariableTypeTable:
		fn := r.desc
		if name == attrLocalVariableTypeTable {
			fn = r.signature
		}
		n := int(c.u16())
		for range n {
			c.skip(6)
			off := c.slot()
			c.skip(2)
			if c.err != nil {
				return c.err
			}
			if err := r.patch(info, off, fn); err != nil {
				return err
			}
		}
	case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
		n := int(c.u16())
		for range n {
			if err := r.annotation(c); err != nil {
				return err
			}
		}
	case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
		params := int(c.u8())
		for range params {
			n := int(c.u16())
			for range n {
				if err := r.annotation(c); err != nil {
					return err
				}
			}
		}
	case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
		n := int(c.u16())
		for range n {
			if err := r.typeAnnotation(c); err != nil {
				return err
			}
		}
	case attrAnnotationDefault:
		return r.elementValue(c)
	case attrEnclosingMethod:
		return r.enclosingMethod(c)
	case attrInnerClasses:
		return r.innerClasses(c)
	case attrRecord:
		return r.record(c)
	}
	return c.err
}

func (r *remapper) code(c *cursor) error {
	c.skip(4)
	c.skip(int(c.u32()))
	c.skip(8 * int(c.u16()))
	n := int(c.u16())
	for range n {
		nameIdx := c.u16()
		size := int(c.u32())
		start := c.off
		c.skip(size)
		if c.err != nil {
			return c.err
		}
		name, err := r.pool.Utf8(nameIdx)
		if err != nil {
			return err
		}
		if err := r.attribute(name, c.b[start:start+size]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return c.err
}

func (r *remapper) annotation(c *cursor) error {
	off := c.slot()
	if c.err != nil {
		return c.err
	}
	if err := r.patch(c.b, off, r.desc); err != nil {
		return err
	}
	n := int(c.u16())
	for range n {
		c.skip(2)
		if err := r.elementValue(c); err != nil {
			return err
		}
	}
	return c.err
}

func (r *remapper) elementValue(c *cursor) error {
	tag := c.u8()
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		c.skip(2)
	case 'e':
		typeOff := c.slot()
		constOff := c.slot()
		if c.err != nil {
			return c.err
		}
		typeDesc, err := r.pool.Utf8(binary.BigEndian.Uint16(c.b[typeOff:]))
		if err != nil {
			return err
		}
		owner := TypeName(typeDesc)
		if err := r.patch(c.b, constOff, func(name string) string {
			return r.namer.Field(owner, name, typeDesc)
		}); err != nil {
			return err
		}
		return r.patch(c.b, typeOff, r.desc)
	case 'c':
		off := c.slot()
		if c.err != nil {
			return c.err
		}
		return r.patch(c.b, off, r.desc)
	case '@':
		return r.annotation(c)
	case '[':
		n := int(c.u16())
		for range n {
			if err := r.elementValue(c); err != nil {
				return err
			}
		}
	default:
		if c.err == nil {
			return fmt.Errorf("%w: element value tag %q", ErrMalformed, tag)
		}
	}
	return c.err
}

func (r *remapper) typeAnnotation(c *cursor) error {
	switch target := c.u8(); {
	case target == 0x00 || target == 0x01 || target == 0x16:
		c.skip(1)
	case target == 0x10 || target == 0x17 || (target >= 0x42 && target <= 0x46):
		c.skip(2)
	case target == 0x11 || target == 0x12:
		c.skip(2)
	case target >= 0x13 && target <= 0x15:
	case target == 0x40 || target == 0x41:
		c.skip(6 * int(c.u16()))
	case target >= 0x47 && target <= 0x4B:
		c.skip(3)
	default:
		if c.err == nil {
			return fmt.Errorf("%w: type annotation target 0x%02x", ErrMalformed, target)
		}
	}
	c.skip(2 * int(c.u8()))
	return r.annotation(c)
}

func (r *remapper) enclosingMethod(c *cursor) error {
	cls := c.u16()
	off := c.slot()
	if c.err != nil {
		return c.err
	}
	nat := binary.BigEndian.Uint16(c.b[off:])
	if nat == 0 {
		return nil
	}
	owner, ok := r.classes[cls]
	if !ok {
		return fmt.Errorf("%w: enclosing class %d", ErrBadIndex, cls)
	}
	name, desc, err := r.pool.NameAndType(nat)
	if err != nil {
		return err
	}
	newName, newDesc := r.namer.Method(owner, name, desc), r.desc(desc)
	if newName == name && newDesc == desc {
		return nil
	}
	i, err := r.pool.AddNameAndType(newName, newDesc)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(c.b[off:], i)
	r.changed = true
	return nil
}

func (r *remapper) innerClasses(c *cursor) error {
	n := int(c.u16())
	for range n {
		inner := c.u16()
		c.skip(2)
		off := c.slot()
		c.skip(2)
		if c.err != nil {
			return c.err
		}
		if binary.BigEndian.Uint16(c.b[off:]) == 0 {
			continue
		}
		name, ok := r.classes[inner]
		if !ok {
			return fmt.Errorf("%w: inner class %d", ErrBadIndex, inner)
		}
		mapped := r.mapClass(name)
		if mapped == name {
			continue
		}
		if err := r.patch(c.b, off, func(simple string) string {
			if i := strings.LastIndexByte(mapped, '$'); i >= 0 {
				return mapped[i+1:]
			}
			return simple
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *remapper) record(c *cursor) error {
	n := int(c.u16())
	for range n {
		nameOff := c.slot()
		descOff := c.slot()
		if c.err != nil {
			return c.err
		}
		desc, err := r.pool.Utf8(binary.BigEndian.Uint16(c.b[descOff:]))
		if err != nil {
			return err
		}
		if err := r.patch(c.b, nameOff, func(name string) string {
			return r.namer.Field(r.owner, name, desc)
		}); err != nil {
			return err
		}
		if err := r.patch(c.b, descOff, r.desc); err != nil {
			return err
		}
		attrs := int(c.u16())
		for range attrs {
			nameIdx := c.u16()
			size := int(c.u32())
			start := c.off
			c.skip(size)
			if c.err != nil {
				return c.err
			}
			name, err := r.pool.Utf8(nameIdx)
			if err != nil {
				return err
			}
			if err := r.attribute(name, c.b[start:start+size]); err != nil {
				return err
			}
		}
	}
	return c.err
}
