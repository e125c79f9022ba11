// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// ParseResult holds a decoded document and the unified value it came from.
type ParseResult[T any] struct {
	Value *T
	// Unified serves callers that need fields T does not carry.
	Unified cue.Value
}

// ParseAndDecode validates data against the schema definition at schemaPath
// (such as "#Descriptor" or "#Config") and decodes the result into T.
// Document errors are *ValidationError values naming the file and path.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	def, err := lookupDefinition(ctx, schema, schemaPath)
	if err != nil {
		return nil, err
	}
	doc, err := compileDocument(ctx, data, o)
	if err != nil {
		return nil, err
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}
	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &out, Unified: unified}, nil
}

// ParseAndDecodeString is ParseAndDecode for schemas embedded as strings.
func ParseAndDecodeString[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecode[T]([]byte(schema), data, schemaPath, opts...)
}

// lookupDefinition compiles an embedded schema. Failures here are bugs in
// the schema, not in the document.
func lookupDefinition(ctx *cue.Context, schema []byte, path string) (cue.Value, error) {
	v := ctx.CompileBytes(schema)
	if v.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", v.Err())
	}
	def := v.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s: %w", path, def.Err())
	}
	return def, nil
}

func compileDocument(ctx *cue.Context, data []byte, o parseOptions) (cue.Value, error) {
	if !o.json {
		v := ctx.CompileBytes(data, cue.Filename(o.filename))
		return v, FormatError(v.Err(), o.filename)
	}
	expr, err := cuejson.Extract(o.filename, data)
	if err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	v := ctx.BuildExpr(expr, cue.Filename(o.filename))
	return v, FormatError(v.Err(), o.filename)
}
