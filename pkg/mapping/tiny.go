// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedTiny is returned when a Tiny mapping file cannot be parsed.
var ErrMalformedTiny = errors.New("malformed tiny mappings")

// maxTinyLine bounds a single mapping line.
const maxTinyLine = 1 << 20

// LoadTinyFile reads a Tiny v1 or v2 mapping file.
func LoadTinyFile(path string) (tree *Tree, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mappings: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	tree, err = ParseTiny(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// ParseTiny parses Tiny v1 ("v1\t<ns>...") or Tiny v2 ("tiny\t2\t<minor>\t<ns>...")
// mappings. Comments, parameters and local variables are ignored.
func ParseTiny(r io.Reader) (*Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTinyLine)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrMalformedTiny)
	}
	header := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
	switch {
	case len(header) >= 5 && header[0] == "tiny" && header[1] == "2":
		return parseTinyV2(sc, header[3:])
	case len(header) >= 3 && header[0] == "v1":
		return parseTinyV1(sc, header[1:])
	}
	return nil, fmt.Errorf("%w: unrecognized header %q", ErrMalformedTiny, sc.Text())
}

func tinyNamespaces(cols []string) ([]Namespace, error) {
	out := make([]Namespace, len(cols))
	for i, c := range cols {
		ns := Namespace(c)
		if err := ns.Validate(); err != nil {
			return nil, fmt.Errorf("%w: header: %w", ErrMalformedTiny, err)
		}
		out[i] = ns
	}
	return out, nil
}

func parseTinyV1(sc *bufio.Scanner, cols []string) (*Tree, error) {
	namespaces, err := tinyNamespaces(cols)
	if err != nil {
		return nil, err
	}
	tree := NewTree(namespaces...)
	n := len(namespaces)
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, "\t")
		switch parts[0] {
		case "CLASS":
			if len(parts) < 2 {
				return nil, fmt.Errorf("%w: line %d: CLASS needs a name", ErrMalformedTiny, line)
			}
			tree.AddClass(columns(parts[1:], n)...)
		case "FIELD", "METHOD":
			if len(parts) < 4 {
				return nil, fmt.Errorf("%w: line %d: %s needs owner, descriptor and a name", ErrMalformedTiny, line, parts[0])
			}
			owner := tree.AddClass(parts[1])
			if parts[0] == "FIELD" {
				owner.AddField(parts[2], columns(parts[3:], n)...)
			} else {
				owner.AddMethod(parts[2], columns(parts[3:], n)...)
			}
		default:
			return nil, fmt.Errorf("%w: line %d: unknown section %q", ErrMalformedTiny, line, parts[0])
		}
	}
	return tree, sc.Err()
}

func parseTinyV2(sc *bufio.Scanner, cols []string) (*Tree, error) {
	namespaces, err := tinyNamespaces(cols)
	if err != nil {
		return nil, err
	}
	tree := NewTree(namespaces...)
	n := len(namespaces)
	escaped := false
	inHeader := true
	var class *ClassNode
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		depth := len(text) - len(strings.TrimLeft(text, "\t"))
		parts := strings.Split(text[depth:], "\t")
		if inHeader && depth == 1 {
			if parts[0] == "escaped-names" {
				escaped = true
			}
			continue
		}
		inHeader = false
		if escaped {
			for i := range parts {
				parts[i] = unescapeTiny(parts[i])
			}
		}
		switch {
		case depth == 0 && parts[0] == "c":
			if len(parts) < 2 {
				return nil, fmt.Errorf("%w: line %d: class needs a name", ErrMalformedTiny, line)
			}
			class = tree.AddClass(columns(parts[1:], n)...)
		case depth == 1 && (parts[0] == "f" || parts[0] == "m"):
			if class == nil {
				return nil, fmt.Errorf("%w: line %d: member outside class", ErrMalformedTiny, line)
			}
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: line %d: member needs descriptor and a name", ErrMalformedTiny, line)
			}
			if parts[0] == "f" {
				class.AddField(parts[1], columns(parts[2:], n)...)
			} else {
				class.AddMethod(parts[1], columns(parts[2:], n)...)
			}
		case depth == 0:
			return nil, fmt.Errorf("%w: line %d: unknown section %q", ErrMalformedTiny, line, parts[0])
		}
		// Comments, parameters and locals (depth >= 1, other kinds) carry no renames.
	}
	return tree, sc.Err()
}

// columns trims names to the namespace count. Missing trailing columns are
// left to the tree's fallback.
func columns(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}
	return names
}

var tinyEscapes = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t", `\0`, "\x00")

func unescapeTiny(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return tinyEscapes.Replace(s)
}
