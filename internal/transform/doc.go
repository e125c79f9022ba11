// SPDX-License-Identifier: MPL-2.0

// Package transform rewrites the entries of a mod archive in a single
// streaming pass. Every entry is read once, handed through a fixed chain of
// stages (class renaming, mixin config rewriting, reference map rewriting,
// access widening, provenance) and written once.
//
// The chain is assembled with a typed builder so stages can only be added in
// execution order:
//
//	p := transform.Rename(renamer).
//		Configs(configs).
//		Refmaps(refmaps).
//		Widen(widener).
//		Provenance(provenance)
//	err := p.Run(input, output)
package transform
