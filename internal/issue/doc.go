// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Remap failures are classified into catalog entries (Classify) that carry
// Markdown guidance rendered with glamour, and ActionableError wraps a cause
// with the operation, resource and suggestions shown by the CLI.
package issue
