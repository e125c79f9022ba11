// SPDX-License-Identifier: MPL-2.0

package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the class file signature.
const Magic uint32 = 0xCAFEBABE

// defaultMajor is the class file version used by New (Java 17).
const defaultMajor = 61

var (
	// ErrMalformed is returned when class file bytes cannot be decoded.
	ErrMalformed = errors.New("malformed class file")
	// ErrTruncated is returned when the input ends inside a structure.
	ErrTruncated = fmt.Errorf("%w: unexpected end of data", ErrMalformed)
)

type (
	// ClassFile is a decoded class file.
	ClassFile struct {
		Minor      uint16
		Major      uint16
		Pool       *Pool
		Access     uint16
		This       uint16
		Super      uint16
		Interfaces []uint16
		Fields     []Member
		Methods    []Member
		Attributes []Attribute
	}

	// Member is a field_info or method_info structure.
	Member struct {
		Access     uint16
		Name       uint16
		Descriptor uint16
		Attributes []Attribute
	}

	// Attribute is an attribute with its undecoded payload.
	Attribute struct {
		Name uint16
		Info []byte
	}

	reader struct {
		buf []byte
		pos int
		err error
	}
)

// IsClass reports whether data starts with the class file signature.
func IsClass(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == Magic
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// bytes returns a copy so decoded structures never alias the input.
func (r *reader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

func (r *reader) attributes() []Attribute {
	n := int(r.u16())
	attrs := make([]Attribute, 0, n)
	for range n {
		name := r.u16()
		size := r.u32()
		if r.err != nil {
			return nil
		}
		if uint64(size) > uint64(len(r.buf)-r.pos) {
			r.err = ErrTruncated
			return nil
		}
		attrs = append(attrs, Attribute{Name: name, Info: r.bytes(int(size))})
	}
	return attrs
}

func (r *reader) members() []Member {
	n := int(r.u16())
	members := make([]Member, 0, n)
	for range n {
		m := Member{Access: r.u16(), Name: r.u16(), Descriptor: r.u16()}
		m.Attributes = r.attributes()
		if r.err != nil {
			return nil
		}
		members = append(members, m)
	}
	return members
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{buf: data}
	if r.u32() != Magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	cf := &ClassFile{Minor: r.u16(), Major: r.u16()}
	if r.err != nil {
		return nil, r.err
	}
	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool
	cf.Access = r.u16()
	cf.This = r.u16()
	cf.Super = r.u16()
	n := int(r.u16())
	if r.err != nil {
		return nil, r.err
	}
	cf.Interfaces = make([]uint16, 0, n)
	for range n {
		cf.Interfaces = append(cf.Interfaces, r.u16())
	}
	cf.Fields = r.members()
	cf.Methods = r.members()
	cf.Attributes = r.attributes()
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-r.pos)
	}
	if _, err := cf.Pool.ClassName(cf.This); err != nil {
		return nil, fmt.Errorf("%w: this_class: %w", ErrMalformed, err)
	}
	return cf, nil
}

// New returns an empty class with the given name, super class and access flags.
// An empty super name produces a class without a super class (java/lang/Object
// and module-info).
func New(name, super string, access uint16) (*ClassFile, error) {
	cf := &ClassFile{Major: defaultMajor, Pool: NewPool(), Access: access}
	var err error
	if cf.This, err = cf.Pool.AddClass(name); err != nil {
		return nil, err
	}
	if super != "" {
		if cf.Super, err = cf.Pool.AddClass(super); err != nil {
			return nil, err
		}
	}
	return cf, nil
}

// Bytes encodes the class file.
func (cf *ClassFile) Bytes() ([]byte, error) {
	b := make([]byte, 0, 1024)
	b = binary.BigEndian.AppendUint32(b, Magic)
	b = binary.BigEndian.AppendUint16(b, cf.Minor)
	b = binary.BigEndian.AppendUint16(b, cf.Major)
	b, err := cf.Pool.appendTo(b)
	if err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, cf.Access)
	b = binary.BigEndian.AppendUint16(b, cf.This)
	b = binary.BigEndian.AppendUint16(b, cf.Super)
	b = binary.BigEndian.AppendUint16(b, uint16(len(cf.Interfaces)))
	for _, i := range cf.Interfaces {
		b = binary.BigEndian.AppendUint16(b, i)
	}
	b = appendMembers(b, cf.Fields)
	b = appendMembers(b, cf.Methods)
	b = appendAttributes(b, cf.Attributes)
	return b, nil
}

func appendMembers(b []byte, members []Member) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(members)))
	for _, m := range members {
		b = binary.BigEndian.AppendUint16(b, m.Access)
		b = binary.BigEndian.AppendUint16(b, m.Name)
		b = binary.BigEndian.AppendUint16(b, m.Descriptor)
		b = appendAttributes(b, m.Attributes)
	}
	return b
}

func appendAttributes(b []byte, attrs []Attribute) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(attrs)))
	for _, a := range attrs {
		b = binary.BigEndian.AppendUint16(b, a.Name)
		b = binary.BigEndian.AppendUint32(b, uint32(len(a.Info)))
		b = append(b, a.Info...)
	}
	return b
}

// Name returns the internal name of the class.
func (cf *ClassFile) Name() (string, error) {
	return cf.Pool.ClassName(cf.This)
}

// SuperName returns the internal name of the super class, or "" when there is none.
func (cf *ClassFile) SuperName() (string, error) {
	if cf.Super == 0 {
		return "", nil
	}
	return cf.Pool.ClassName(cf.Super)
}

// Supertypes returns the super class, if any, followed by the interfaces.
func (cf *ClassFile) Supertypes() ([]string, error) {
	names := make([]string, 0, 1+len(cf.Interfaces))
	super, err := cf.SuperName()
	if err != nil {
		return nil, err
	}
	if super != "" {
		names = append(names, super)
	}
	for _, i := range cf.Interfaces {
		name, err := cf.Pool.ClassName(i)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// MemberSignature returns the name and descriptor of a field or method.
func (cf *ClassFile) MemberSignature(m *Member) (name, desc string, err error) {
	if name, err = cf.Pool.Utf8(m.Name); err != nil {
		return "", "", err
	}
	if desc, err = cf.Pool.Utf8(m.Descriptor); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// FindField returns the declared field with the given name and descriptor.
// An empty descriptor matches any field with that name.
func (cf *ClassFile) FindField(name, desc string) *Member {
	return cf.find(cf.Fields, name, desc)
}

// FindMethod returns the declared method with the given name and descriptor.
// An empty descriptor matches the first method with that name.
func (cf *ClassFile) FindMethod(name, desc string) *Member {
	return cf.find(cf.Methods, name, desc)
}

func (cf *ClassFile) find(members []Member, name, desc string) *Member {
	for i := range members {
		n, d, err := cf.MemberSignature(&members[i])
		if err != nil {
			continue
		}
		if n == name && (desc == "" || d == desc) {
			return &members[i]
		}
	}
	return nil
}

// AddField declares a field.
func (cf *ClassFile) AddField(access uint16, name, desc string, attrs ...Attribute) error {
	m, err := cf.newMember(access, name, desc, attrs)
	if err != nil {
		return err
	}
	cf.Fields = append(cf.Fields, m)
	return nil
}

// AddMethod declares a method.
func (cf *ClassFile) AddMethod(access uint16, name, desc string, attrs ...Attribute) error {
	m, err := cf.newMember(access, name, desc, attrs)
	if err != nil {
		return err
	}
	cf.Methods = append(cf.Methods, m)
	return nil
}

func (cf *ClassFile) newMember(access uint16, name, desc string, attrs []Attribute) (Member, error) {
	n, err := cf.Pool.AddUtf8(name)
	if err != nil {
		return Member{}, err
	}
	d, err := cf.Pool.AddUtf8(desc)
	if err != nil {
		return Member{}, err
	}
	return Member{Access: access, Name: n, Descriptor: d, Attributes: attrs}, nil
}

// AttributeName returns the name of an attribute.
func (cf *ClassFile) AttributeName(a Attribute) (string, error) {
	return cf.Pool.Utf8(a.Name)
}

// FindAttribute returns the first attribute with the given name, or nil.
func (cf *ClassFile) FindAttribute(attrs []Attribute, name string) *Attribute {
	for i := range attrs {
		if n, err := cf.Pool.Utf8(attrs[i].Name); err == nil && n == name {
			return &attrs[i]
		}
	}
	return nil
}
