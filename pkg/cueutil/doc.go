// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates structured documents against embedded CUE schemas.
//
// Every schema-backed document in the module goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile the document (CUE or JSON) and unify it with the schema
//  3. Validate and decode to a Go struct
//
// # Usage
//
//	//go:embed descriptor_schema.cue
//	var descriptorSchema []byte
//
//	result, err := cueutil.ParseAndDecode[rawDescriptor](
//	    descriptorSchema,
//	    data,
//	    "#Descriptor",
//	    cueutil.WithFilename("fabric.mod.json"),
//	    cueutil.WithJSON(),
//	)
//	if err != nil {
//	    return nil, err // includes the JSON path of the offending value
//	}
package cueutil
