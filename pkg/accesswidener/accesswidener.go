// SPDX-License-Identifier: MPL-2.0

// Package accesswidener parses, remaps and applies access widener files.
//
// An access widener raises the visibility or drops the finality of named
// classes, methods and fields:
//
//	accessWidener	v2	intermediary
//	accessible	class	net/minecraft/class_1
//	extendable	method	net/minecraft/class_1	method_1	(I)V
//	transitive-mutable	field	net/minecraft/class_1	field_1	I
package accesswidener

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/modbridge/modbridge/pkg/mapping"
)

const (
	header = "accessWidener"

	transitivePrefix = "transitive-"
)

const (
	// Accessible makes the target public.
	Accessible Access = "accessible"
	// Extendable makes the target subclassable or overridable.
	Extendable Access = "extendable"
	// Mutable removes the final flag of a field.
	Mutable Access = "mutable"
)

const (
	// KindClass targets a class.
	KindClass Kind = "class"
	// KindMethod targets a method.
	KindMethod Kind = "method"
	// KindField targets a field.
	KindField Kind = "field"
)

// ErrMalformed is returned when an access widener cannot be parsed.
var ErrMalformed = errors.New("malformed access widener")

type (
	// Access is a requested access level.
	Access string

	// Kind is the kind of target symbol.
	Kind string

	// Entry is one directive.
	Entry struct {
		Access     Access
		Transitive bool
		Kind       Kind
		// Owner is the internal name of the target class, or of the member's owner.
		Owner string
		// Name and Desc are empty for class directives.
		Name string
		Desc string
	}

	// File is a parsed access widener.
	File struct {
		// Version is the format version (1 or 2).
		Version   int
		Namespace mapping.Namespace
		Entries   []Entry
	}

	// ParseError reports the offending line.
	ParseError struct {
		Line int
		Msg  string
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Unwrap returns ErrMalformed for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrMalformed }

// Parse reads an access widener.
func Parse(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	f := &File{}
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if f.Version == 0 {
			if err := f.parseHeader(fields, line); err != nil {
				return nil, err
			}
			continue
		}
		e, err := f.parseEntry(fields, line)
		if err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if f.Version == 0 {
		return nil, &ParseError{Line: line, Msg: "missing header"}
	}
	return f, nil
}

// ParseBytes reads an access widener from memory.
func ParseBytes(data []byte) (*File, error) {
	return Parse(bytes.NewReader(data))
}

func (f *File) parseHeader(fields []string, line int) error {
	if len(fields) != 3 || fields[0] != header {
		return &ParseError{Line: line, Msg: "expected header \"accessWidener <version> <namespace>\""}
	}
	switch fields[1] {
	case "v1":
		f.Version = 1
	case "v2":
		f.Version = 2
	default:
		return &ParseError{Line: line, Msg: fmt.Sprintf("unsupported version %q", fields[1])}
	}
	f.Namespace = mapping.Namespace(fields[2])
	return nil
}

func (f *File) parseEntry(fields []string, line int) (Entry, error) {
	var e Entry
	access := fields[0]
	if rest, ok := strings.CutPrefix(access, transitivePrefix); ok {
		if f.Version < 2 {
			return e, &ParseError{Line: line, Msg: "transitive directives require v2"}
		}
		e.Transitive = true
		access = rest
	}
	e.Access = Access(access)
	switch e.Access {
	case Accessible, Extendable, Mutable:
	default:
		return e, &ParseError{Line: line, Msg: fmt.Sprintf("unknown access %q", fields[0])}
	}
	if len(fields) < 2 {
		return e, &ParseError{Line: line, Msg: "missing target kind"}
	}
	e.Kind = Kind(fields[1])
	switch e.Kind {
	case KindClass:
		if len(fields) != 3 {
			return e, &ParseError{Line: line, Msg: "class directive expects 3 columns"}
		}
		if e.Access == Mutable {
			return e, &ParseError{Line: line, Msg: "classes cannot be mutable"}
		}
		e.Owner = fields[2]
	case KindMethod, KindField:
		if len(fields) != 5 {
			return e, &ParseError{Line: line, Msg: fmt.Sprintf("%s directive expects 5 columns", e.Kind)}
		}
		if e.Kind == KindMethod && e.Access == Mutable {
			return e, &ParseError{Line: line, Msg: "methods cannot be mutable"}
		}
		if e.Kind == KindField && e.Access == Extendable {
			return e, &ParseError{Line: line, Msg: "fields cannot be extendable"}
		}
		e.Owner, e.Name, e.Desc = fields[2], fields[3], fields[4]
	default:
		return e, &ParseError{Line: line, Msg: fmt.Sprintf("unknown target kind %q", fields[1])}
	}
	if strings.Contains(e.Owner, ".") {
		return e, &ParseError{Line: line, Msg: fmt.Sprintf("class name %q must use '/' separators", e.Owner)}
	}
	return e, nil
}

// String renders the directive as one access widener line.
func (e Entry) String() string {
	access := string(e.Access)
	if e.Transitive {
		access = transitivePrefix + access
	}
	parts := []string{access, string(e.Kind), e.Owner}
	if e.Kind != KindClass {
		parts = append(parts, e.Name, e.Desc)
	}
	return strings.Join(parts, "\t")
}

// Bytes renders the file. Comments are not preserved.
func (f *File) Bytes() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\tv%d\t%s\n", header, f.Version, f.Namespace)
	for _, e := range f.Entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Remap returns a copy of f expressed in the destination namespace of t.
// t must map from f.Namespace.
func (f *File) Remap(t *mapping.Table) *File {
	out := &File{Version: f.Version, Namespace: t.To(), Entries: make([]Entry, len(f.Entries))}
	for i, e := range f.Entries {
		m := e
		m.Owner = t.Class(e.Owner)
		switch e.Kind {
		case KindMethod:
			if e.Name != "<init>" && e.Name != "<clinit>" {
				m.Name = t.Method(e.Owner, e.Name, e.Desc)
			}
			m.Desc = t.Descriptor(e.Desc)
		case KindField:
			m.Name = t.Field(e.Owner, e.Name, e.Desc)
			m.Desc = t.Descriptor(e.Desc)
		}
		out.Entries[i] = m
	}
	return out
}
