// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"bufio"
	"bytes"
	"maps"
	"slices"
	"strings"
)

const (
	// ManifestPath is the location of the jar manifest.
	ManifestPath = "META-INF/MANIFEST.MF"

	// MappingNamespaceAttribute overrides the namespace an archive was compiled against.
	MappingNamespaceAttribute = "Fabric-Mapping-Namespace"
)

// Manifest holds the main attributes of a jar manifest. ParseManifest keeps
// one key per case-insensitive name.
type Manifest map[string]string

// Get returns an attribute value. Attribute names are case-insensitive; an
// exact match wins, then the first matching key in sorted order.
func (m Manifest) Get(name string) (string, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ParseManifest reads the main section of a jar manifest. Lines starting
// with a single space continue the previous value; the main section ends at
// the first blank line. Malformed lines are ignored. A name repeated in
// another case replaces the value but keeps the first spelling.
func ParseManifest(data []byte) Manifest {
	m := make(Manifest)
	spelling := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	var key string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if line[0] == ' ' {
			if key != "" {
				m[key] += line[1:]
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			key = ""
			continue
		}
		folded := strings.ToLower(name)
		if first, ok := spelling[folded]; ok {
			name = first
		} else {
			spelling[folded] = name
		}
		key = name
		m[key] = strings.TrimPrefix(value, " ")
	}
	return m
}
