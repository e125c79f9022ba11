// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the remapping hot paths, suitable for
// PGO profile generation:
//   - Tiny mapping parsing and table flattening
//   - class file parsing, remapping and re-encoding
//   - the archive transform pipeline
//   - cached remaps of an unchanged archive
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
