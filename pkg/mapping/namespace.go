// SPDX-License-Identifier: MPL-2.0

// Package mapping builds symbol rename tables between naming namespaces.
//
// A Resolver enumerates known classes with their names in every namespace.
// Builder flattens the resolver's view of one (from, to) pair into an
// immutable Table that the class file remapper and the configuration
// rewriters consult. Tree is the in-memory Resolver loaded from Tiny files.
package mapping

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Official is the namespace of the shipped (obfuscated) game classes.
	Official Namespace = "official"
	// Intermediary is the stable namespace mod archives are compiled against.
	Intermediary Namespace = "intermediary"
	// Named is the human-readable development namespace.
	Named Namespace = "named"
	// Srg is the namespace used by the host loader at runtime.
	Srg Namespace = "srg"
)

var (
	// ErrNamespaceUnavailable is returned when the resolver has no data for a namespace.
	ErrNamespaceUnavailable = errors.New("namespace unavailable")
	// ErrInvalidNamespace is returned when a Namespace value is empty or contains whitespace.
	ErrInvalidNamespace = errors.New("invalid namespace")
)

type (
	// Namespace identifies a symbol naming scheme.
	Namespace string

	// NamespaceUnavailableError names the namespace the resolver could not supply.
	// It wraps ErrNamespaceUnavailable for errors.Is() compatibility.
	NamespaceUnavailableError struct {
		Namespace Namespace
		Known     []Namespace
	}

	// InvalidNamespaceError is returned when a Namespace value is malformed.
	InvalidNamespaceError struct {
		Value Namespace
	}
)

// String returns the string representation of the Namespace.
func (n Namespace) String() string { return string(n) }

// Validate returns nil if the namespace is a non-empty token without whitespace.
func (n Namespace) Validate() error {
	if n == "" || strings.ContainsAny(string(n), " \t\r\n") {
		return &InvalidNamespaceError{Value: n}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidNamespaceError) Error() string {
	return fmt.Sprintf("invalid namespace %q (must be a non-empty token)", e.Value)
}

// Unwrap returns ErrInvalidNamespace for errors.Is() compatibility.
func (e *InvalidNamespaceError) Unwrap() error { return ErrInvalidNamespace }

// Error implements the error interface.
func (e *NamespaceUnavailableError) Error() string {
	known := make([]string, len(e.Known))
	for i, ns := range e.Known {
		known[i] = string(ns)
	}
	return fmt.Sprintf("namespace %q unavailable (known: %s)", e.Namespace, strings.Join(known, ", "))
}

// Unwrap returns ErrNamespaceUnavailable for errors.Is() compatibility.
func (e *NamespaceUnavailableError) Unwrap() error { return ErrNamespaceUnavailable }
