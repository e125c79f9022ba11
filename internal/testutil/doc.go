// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixtures for tests that fail the test on error
// instead of returning it.
//
// Archive fixtures (WriteJar, JarBytes, ReadJar) build and inspect mod
// archives; NewClass assembles class files with chosen members and
// references. MustMkdirAll and MustWriteFile cover plain files.
package testutil
