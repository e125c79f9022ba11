// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"slices"
	"sync"
)

type (
	// Builder flattens a Resolver into Tables. Tables are memoized per
	// namespace pair, so concurrent remaps share one instance.
	Builder struct {
		resolver Resolver

		mu     sync.Mutex
		tables map[pair]*Table
	}

	pair struct {
		from Namespace
		to   Namespace
	}
)

// NewBuilder creates a Builder reading from r. The builder never mutates r.
func NewBuilder(r Resolver) *Builder {
	return &Builder{resolver: r, tables: make(map[pair]*Table)}
}

// Resolver returns the underlying resolver.
func (b *Builder) Resolver() Resolver {
	return b.resolver
}

// Build returns the rename table for (from, to). Symbols the resolver does
// not know are absent and pass through lookups unchanged. The only failure
// is a namespace the resolver cannot supply at all.
func (b *Builder) Build(from, to Namespace) (*Table, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := pair{from, to}
	if t, ok := b.tables[key]; ok {
		return t, nil
	}

	known := b.resolver.Namespaces()
	for _, ns := range []Namespace{from, to} {
		if !slices.Contains(known, ns) {
			return nil, &NamespaceUnavailableError{Namespace: ns, Known: known}
		}
	}

	t := newTable(from, to)
	if from != to {
		defs, err := b.resolver.Classes(from, to)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			t.add(def)
		}
		t.index(defs)
	}
	b.tables[key] = t
	return t, nil
}
