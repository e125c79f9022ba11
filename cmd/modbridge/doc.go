// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modbridge.
//
// This package implements the Cobra command hierarchy: the root command,
// scan and remap for mod archives, config for inspecting settings and
// explain for the issue catalog.
package cmd
