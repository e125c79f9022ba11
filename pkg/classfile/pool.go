// SPDX-License-Identifier: MPL-2.0

package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Constant pool tags (JVMS 4.4).
const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// maxPoolCount is the largest constant_pool_count a class file can declare.
const maxPoolCount = 0xFFFF

var (
	// ErrPoolOverflow is returned when appending would exceed the constant pool size limit.
	ErrPoolOverflow = errors.New("constant pool overflow")
	// ErrBadIndex is returned when a constant pool index is out of range or has the wrong tag.
	ErrBadIndex = errors.New("bad constant pool index")
)

type (
	// Tag identifies the kind of a constant pool entry.
	Tag uint8

	// Constant is a decoded constant pool entry.
	Constant struct {
		Tag Tag
		// Value holds the raw modified UTF-8 bytes of a TagUtf8 entry.
		Value string
		// A and B are the index operands. Class, String, MethodType, Module and
		// Package use A. Field and method refs use A for the class and B for the
		// NameAndType. NameAndType uses A for the name and B for the descriptor.
		// Dynamic and InvokeDynamic use A for the bootstrap method and B for the
		// NameAndType. MethodHandle uses A for the referenced member.
		A, B uint16
		// RefKind is the reference kind of a TagMethodHandle entry.
		RefKind uint8
		// Bits holds numeric payloads.
		Bits uint64
	}

	// Pool is a class file constant pool. Index 0 is unused and the second
	// slot of Long and Double entries holds a zero Constant.
	Pool struct {
		entries []Constant
		utf8    map[string]uint16
		nat     map[[2]uint16]uint16
		classes map[uint16]uint16
	}
)

// NewPool returns an empty constant pool.
func NewPool() *Pool {
	return &Pool{
		entries: []Constant{{}},
		utf8:    make(map[string]uint16),
		nat:     make(map[[2]uint16]uint16),
		classes: make(map[uint16]uint16),
	}
}

// wide reports whether the tag occupies two constant pool slots.
func (t Tag) wide() bool {
	return t == TagLong || t == TagDouble
}

// Len returns the constant_pool_count: one more than the highest valid index.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Get returns the entry at index i.
func (p *Pool) Get(i uint16) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].Tag == 0 {
		return Constant{}, fmt.Errorf("%w: %d", ErrBadIndex, i)
	}
	return p.entries[i], nil
}

func (p *Pool) expect(i uint16, tag Tag) (Constant, error) {
	c, err := p.Get(i)
	if err != nil {
		return Constant{}, err
	}
	if c.Tag != tag {
		return Constant{}, fmt.Errorf("%w: entry %d has tag %d, want %d", ErrBadIndex, i, c.Tag, tag)
	}
	return c, nil
}

// Utf8 returns the string stored in the UTF8 entry at index i.
func (p *Pool) Utf8(i uint16) (string, error) {
	c, err := p.expect(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// ClassName returns the internal name referenced by the Class entry at index i.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.expect(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.A)
}

// NameAndType returns the name and descriptor of the NameAndType entry at index i.
func (p *Pool) NameAndType(i uint16) (name, desc string, err error) {
	c, err := p.expect(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(c.A); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(c.B); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// Ref returns the owner, name and descriptor of a field or method reference.
func (p *Pool) Ref(i uint16) (owner, name, desc string, err error) {
	c, err := p.Get(i)
	if err != nil {
		return "", "", "", err
	}
	switch c.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return "", "", "", fmt.Errorf("%w: entry %d is not a member reference", ErrBadIndex, i)
	}
	if owner, err = p.ClassName(c.A); err != nil {
		return "", "", "", err
	}
	name, desc, err = p.NameAndType(c.B)
	return owner, name, desc, err
}

func (p *Pool) add(c Constant) (uint16, error) {
	slots := 1
	if c.Tag.wide() {
		slots = 2
	}
	if len(p.entries)+slots > maxPoolCount {
		return 0, ErrPoolOverflow
	}
	i := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	if slots == 2 {
		p.entries = append(p.entries, Constant{})
	}
	p.index(i, c)
	return i, nil
}

// index records lookup keys for an entry. The first entry for a key wins.
func (p *Pool) index(i uint16, c Constant) {
	switch c.Tag {
	case TagUtf8:
		if _, ok := p.utf8[c.Value]; !ok {
			p.utf8[c.Value] = i
		}
	case TagNameAndType:
		key := [2]uint16{c.A, c.B}
		if _, ok := p.nat[key]; !ok {
			p.nat[key] = i
		}
	case TagClass:
		if _, ok := p.classes[c.A]; !ok {
			p.classes[c.A] = i
		}
	}
}

// AddUtf8 returns the index of a UTF8 entry holding s, appending one if needed.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	if i, ok := p.utf8[s]; ok {
		return i, nil
	}
	return p.add(Constant{Tag: TagUtf8, Value: s})
}

// AddClass returns the index of a Class entry for name, appending one if needed.
func (p *Pool) AddClass(name string) (uint16, error) {
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	if i, ok := p.classes[n]; ok {
		return i, nil
	}
	return p.add(Constant{Tag: TagClass, A: n})
}

// AddNameAndType returns the index of a NameAndType entry, appending one if needed.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	return p.addNameAndType(n, d)
}

func (p *Pool) addNameAndType(name, desc uint16) (uint16, error) {
	if i, ok := p.nat[[2]uint16{name, desc}]; ok {
		return i, nil
	}
	return p.add(Constant{Tag: TagNameAndType, A: name, B: desc})
}

func (p *Pool) addRef(tag Tag, owner, name, desc string) (uint16, error) {
	cls, err := p.AddClass(owner)
	if err != nil {
		return 0, err
	}
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: tag, A: cls, B: nat})
}

// AddFieldref appends a field reference.
func (p *Pool) AddFieldref(owner, name, desc string) (uint16, error) {
	return p.addRef(TagFieldref, owner, name, desc)
}

// AddMethodref appends a class method reference.
func (p *Pool) AddMethodref(owner, name, desc string) (uint16, error) {
	return p.addRef(TagMethodref, owner, name, desc)
}

// AddInterfaceMethodref appends an interface method reference.
func (p *Pool) AddInterfaceMethodref(owner, name, desc string) (uint16, error) {
	return p.addRef(TagInterfaceMethodref, owner, name, desc)
}

// AddString appends a String constant.
func (p *Pool) AddString(s string) (uint16, error) {
	n, err := p.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagString, A: n})
}

// AddMethodType appends a MethodType constant.
func (p *Pool) AddMethodType(desc string) (uint16, error) {
	d, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagMethodType, A: d})
}

// AddMethodHandle appends a MethodHandle constant pointing at a member reference.
func (p *Pool) AddMethodHandle(kind uint8, ref uint16) (uint16, error) {
	return p.add(Constant{Tag: TagMethodHandle, RefKind: kind, A: ref})
}

// AddInvokeDynamic appends an InvokeDynamic constant.
func (p *Pool) AddInvokeDynamic(bootstrap uint16, name, desc string) (uint16, error) {
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagInvokeDynamic, A: bootstrap, B: nat})
}

// setA retargets the first operand of entry i.
func (p *Pool) setA(i, v uint16) {
	p.entries[i].A = v
	p.index(i, p.entries[i])
}

// setB retargets the second operand of entry i.
func (p *Pool) setB(i, v uint16) {
	p.entries[i].B = v
}

func readPool(r *reader) (*Pool, error) {
	count := r.u16()
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: empty constant pool", ErrMalformed)
	}
	p := NewPool()
	p.entries = make([]Constant, 1, count)
	for i := 1; i < int(count); i++ {
		c := Constant{Tag: Tag(r.u8())}
		switch c.Tag {
		case TagUtf8:
			n := r.u16()
			c.Value = string(r.bytes(int(n)))
		case TagInteger, TagFloat:
			c.Bits = uint64(r.u32())
		case TagLong, TagDouble:
			c.Bits = r.u64()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u16()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u16()
			c.B = r.u16()
		case TagMethodHandle:
			c.RefKind = r.u8()
			c.A = r.u16()
		default:
			if r.err == nil {
				return nil, fmt.Errorf("%w: constant pool entry %d has unknown tag %d", ErrMalformed, i, c.Tag)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		p.entries = append(p.entries, c)
		p.index(uint16(i), c)
		if c.Tag.wide() {
			p.entries = append(p.entries, Constant{})
			i++
		}
	}
	return p, nil
}

func (p *Pool) appendTo(b []byte) ([]byte, error) {
	b = binary.BigEndian.AppendUint16(b, uint16(len(p.entries)))
	for i := 1; i < len(p.entries); i++ {
		c := p.entries[i]
		if c.Tag == 0 {
			continue
		}
		b = append(b, byte(c.Tag))
		switch c.Tag {
		case TagUtf8:
			if len(c.Value) > 0xFFFF {
				return nil, fmt.Errorf("constant pool entry %d: string of %d bytes exceeds limit", i, len(c.Value))
			}
			b = binary.BigEndian.AppendUint16(b, uint16(len(c.Value)))
			b = append(b, c.Value...)
		case TagInteger, TagFloat:
			b = binary.BigEndian.AppendUint32(b, uint32(c.Bits))
		case TagLong, TagDouble:
			b = binary.BigEndian.AppendUint64(b, c.Bits)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			b = binary.BigEndian.AppendUint16(b, c.A)
		case TagMethodHandle:
			b = append(b, c.RefKind)
			b = binary.BigEndian.AppendUint16(b, c.A)
		default:
			b = binary.BigEndian.AppendUint16(b, c.A)
			b = binary.BigEndian.AppendUint16(b, c.B)
		}
	}
	return b, nil
}
