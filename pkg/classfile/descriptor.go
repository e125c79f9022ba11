// SPDX-License-Identifier: MPL-2.0

package classfile

import (
	"fmt"
	"strings"
)

// RemapDescriptor rewrites every class name in a field or method descriptor.
// Malformed descriptors are returned unchanged.
func RemapDescriptor(desc string, mapClass func(string) string) string {
	if strings.IndexByte(desc, 'L') < 0 {
		return desc
	}
	var sb strings.Builder
	sb.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		c := desc[i]
		if c != 'L' {
			sb.WriteByte(c)
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return desc
		}
		sb.WriteByte('L')
		sb.WriteString(mapClass(desc[i+1 : i+end]))
		sb.WriteByte(';')
		i += end
	}
	return sb.String()
}

// ReturnClass returns the internal name of a method descriptor's object
// return type, or "" for primitive, array and void returns.
func ReturnClass(desc string) string {
	i := strings.LastIndexByte(desc, ')')
	if i < 0 || i+1 >= len(desc) || desc[i+1] != 'L' || !strings.HasSuffix(desc, ";") {
		return ""
	}
	return desc[i+2 : len(desc)-1]
}

// TypeName converts a field descriptor of an object type into an internal name.
func TypeName(desc string) string {
	if len(desc) > 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// RemapSignature rewrites every class name in a generic signature (class,
// method or field signature). Nested class segments (Outer<T>.Inner) are
// remapped through their binary name Outer$Inner. On malformed input the
// signature is returned unchanged together with an error.
func RemapSignature(sig string, mapClass func(string) string) (string, error) {
	w := &sigWriter{s: sig, mapClass: mapClass}
	w.out.Grow(len(sig))
	if err := w.signature(); err != nil {
		return sig, err
	}
	return w.out.String(), nil
}

type sigWriter struct {
	s        string
	i        int
	out      strings.Builder
	mapClass func(string) string
}

func (w *sigWriter) peek() byte {
	if w.i >= len(w.s) {
		return 0
	}
	return w.s[w.i]
}

func (w *sigWriter) emit() {
	w.out.WriteByte(w.s[w.i])
	w.i++
}

func (w *sigWriter) fail(what string) error {
	return fmt.Errorf("signature %q: %s at offset %d", w.s, what, w.i)
}

func (w *sigWriter) signature() error {
	if w.peek() == '<' {
		if err := w.typeParams(); err != nil {
			return err
		}
	}
	if w.peek() == '(' {
		w.emit()
		for w.peek() != ')' {
			if w.peek() == 0 {
				return w.fail("unterminated parameter list")
			}
			if err := w.javaType(); err != nil {
				return err
			}
		}
		w.emit()
		if err := w.javaType(); err != nil {
			return err
		}
		for w.peek() == '^' {
			w.emit()
			if err := w.refType(); err != nil {
				return err
			}
		}
	} else {
		for w.peek() != 0 {
			if err := w.refType(); err != nil {
				return err
			}
		}
	}
	if w.i != len(w.s) {
		return w.fail("trailing data")
	}
	return nil
}

func (w *sigWriter) typeParams() error {
	w.emit()
	for w.peek() != '>' {
		j := strings.IndexByte(w.s[w.i:], ':')
		if j <= 0 {
			return w.fail("bad type parameter")
		}
		w.out.WriteString(w.s[w.i : w.i+j])
		w.i += j
		w.emit()
		if c := w.peek(); c == 'L' || c == 'T' || c == '[' {
			if err := w.refType(); err != nil {
				return err
			}
		}
		for w.peek() == ':' {
			w.emit()
			if err := w.refType(); err != nil {
				return err
			}
		}
	}
	w.emit()
	return nil
}

func (w *sigWriter) javaType() error {
	switch w.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		w.emit()
		return nil
	}
	return w.refType()
}

func (w *sigWriter) refType() error {
	switch w.peek() {
	case 'L':
		return w.classType()
	case 'T':
		j := strings.IndexByte(w.s[w.i:], ';')
		if j < 0 {
			return w.fail("unterminated type variable")
		}
		w.out.WriteString(w.s[w.i : w.i+j+1])
		w.i += j + 1
		return nil
	case '[':
		w.emit()
		return w.javaType()
	}
	return w.fail("expected reference type")
}

func (w *sigWriter) ident() (string, error) {
	end := strings.IndexAny(w.s[w.i:], "<.;")
	if end <= 0 {
		return "", w.fail("bad class name")
	}
	id := w.s[w.i : w.i+end]
	w.i += end
	return id, nil
}

func (w *sigWriter) classType() error {
	w.i++
	name, err := w.ident()
	if err != nil {
		return err
	}
	mapped := w.mapClass(name)
	w.out.WriteByte('L')
	w.out.WriteString(mapped)
	for {
		switch w.peek() {
		case '<':
			if err := w.typeArgs(); err != nil {
				return err
			}
		case '.':
			w.i++
			simple, err := w.ident()
			if err != nil {
				return err
			}
			name += "$" + simple
			inner := w.mapClass(name)
			w.out.WriteByte('.')
			w.out.WriteString(innerSimpleName(inner, mapped, simple))
			mapped = inner
		case ';':
			w.emit()
			return nil
		default:
			return w.fail("unterminated class type")
		}
	}
}

func (w *sigWriter) typeArgs() error {
	w.emit()
	for w.peek() != '>' {
		switch w.peek() {
		case 0:
			return w.fail("unterminated type arguments")
		case '*':
			w.emit()
			continue
		case '+', '-':
			w.emit()
		}
		if err := w.refType(); err != nil {
			return err
		}
	}
	w.emit()
	return nil
}

// innerSimpleName derives the simple name of a mapped nested class.
func innerSimpleName(inner, outer, fallback string) string {
	if rest, ok := strings.CutPrefix(inner, outer+"$"); ok {
		return rest
	}
	if i := strings.LastIndexByte(inner, '$'); i >= 0 {
		return inner[i+1:]
	}
	return fallback
}
