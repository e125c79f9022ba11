// SPDX-License-Identifier: MPL-2.0

// Package classfile reads, rewrites and writes JVM class files.
//
// The package models a class file at the level needed for symbol remapping:
// the constant pool is fully decoded, members and attributes are kept as raw
// bytes and only the attributes that reference class, field or method names
// are walked. Remapping never mutates an existing constant pool entry in
// place. New UTF8 and NameAndType entries are appended and the referencing
// sites are retargeted, so attributes this package does not understand keep
// pointing at the strings they were written against.
package classfile
