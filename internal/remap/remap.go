// SPDX-License-Identifier: MPL-2.0

// Package remap turns one mod archive into its remapped, cached counterpart.
// It ties together metadata extraction, the mapping tables, the transform
// pipeline and the content cache.
package remap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/modbridge/modbridge/internal/cache"
	"github.com/modbridge/modbridge/internal/transform"
	"github.com/modbridge/modbridge/pkg/accesswidener"
	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

// DefaultCacheVersion is the cache version used when Options leaves it unset.
// Increment to invalidate every cached output.
const DefaultCacheVersion = 1

const (
	// StageExtract is metadata extraction.
	StageExtract Stage = "extract"
	// StageMapping is building the rename tables.
	StageMapping Stage = "mapping"
	// StageTransform is the transform pipeline.
	StageTransform Stage = "transform"
	// StageCache is the cache lookup and output placement.
	StageCache Stage = "cache"
)

// ErrInvalidOptions is returned by New for unusable options.
var ErrInvalidOptions = errors.New("invalid remap options")

type (
	// Stage names the step an archive failed in.
	Stage string

	// Options configures a Remapper.
	Options struct {
		// CacheDir receives remapped archives and their cache records.
		CacheDir string
		// Target is the namespace archives are remapped to.
		Target mapping.Namespace
		// Source is the namespace archives are assumed to use when their
		// manifest does not say otherwise.
		Source mapping.Namespace
		// RefmapSource is the namespace mixin reference maps are written in.
		RefmapSource mapping.Namespace
		// GameVersion is appended to output names when set.
		GameVersion string
		// CacheVersion defaults to DefaultCacheVersion.
		CacheVersion int
		// MappingsID identifies the mappings content, typically a digest of
		// the mappings file. Outputs cached under another ID are recomputed.
		MappingsID string
	}

	// Remapper remaps archives. It is safe for concurrent use.
	Remapper struct {
		opts    Options
		builder *mapping.Builder
		cache   *cache.Cache
		logger  *log.Logger
	}

	// Result describes a remapped archive.
	Result struct {
		Input    string
		Output   string
		Metadata *modmeta.Metadata
	}

	// Error reports the archive and step a remap failed in.
	Error struct {
		Archive string
		Stage   Stage
		Err     error
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("remap %s: %s: %v", e.Archive, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Suffix returns the output name suffix: _mapped_<target>[_<gameVersion>].
func (o Options) Suffix() string {
	s := "_mapped_" + string(o.Target)
	if o.GameVersion != "" {
		s += "_" + o.GameVersion
	}
	return s
}

func (o Options) validate() error {
	if o.CacheDir == "" {
		return fmt.Errorf("%w: cache directory is required", ErrInvalidOptions)
	}
	for _, ns := range []mapping.Namespace{o.Target, o.Source, o.RefmapSource} {
		if err := ns.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}
	return nil
}

// New creates a Remapper. A nil cache gets a private one and a nil logger
// discards output.
func New(opts Options, builder *mapping.Builder, c *cache.Cache, logger *log.Logger) (*Remapper, error) {
	if opts.CacheVersion == 0 {
		opts.CacheVersion = DefaultCacheVersion
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, fmt.Errorf("%w: mapping builder is required", ErrInvalidOptions)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if c == nil {
		c = cache.New(logger)
	}
	return &Remapper{opts: opts, builder: builder, cache: c, logger: logger.WithPrefix("remap")}, nil
}

// Options returns the effective options.
func (r *Remapper) Options() Options {
	return r.opts
}

// OutputPath returns where the remapped form of input is stored.
func (r *Remapper) OutputPath(input string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(r.opts.CacheDir, name+r.opts.Suffix()+".jar")
}

// cacheKey names everything besides the input bytes that shapes the output
// of input: the namespaces its tables are built between and the mappings.
func (r *Remapper) cacheKey(meta *modmeta.Metadata) string {
	return strings.Join([]string{
		string(meta.SourceNamespace(r.opts.Source)),
		string(r.opts.Target),
		string(r.opts.RefmapSource),
		r.opts.MappingsID,
	}, "|")
}

// Remap produces the remapped archive for input, reusing a cached output
// when the input content is unchanged. Metadata is always extracted, so it
// is returned on cache hits too.
func (r *Remapper) Remap(ctx context.Context, input string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Archive: input, Stage: StageExtract, Err: err}
	}

	meta, err := modmeta.Extract(input)
	if err != nil {
		return nil, &Error{Archive: input, Stage: StageExtract, Err: err}
	}

	if err := os.MkdirAll(r.opts.CacheDir, 0o755); err != nil {
		return nil, &Error{Archive: input, Stage: StageCache, Err: err}
	}
	output := r.OutputPath(input)
	r.logger.Debug("remapping", "mod", meta.ModID(), "input", input, "output", output)

	_, err = r.cache.GetOrComputeKeyed(r.opts.CacheVersion, r.cacheKey(meta), input, output, func() error {
		return r.transform(ctx, input, output, meta)
	})
	if err != nil {
		var remapErr *Error
		if errors.As(err, &remapErr) {
			return nil, remapErr
		}
		return nil, &Error{Archive: input, Stage: StageCache, Err: err}
	}
	return &Result{Input: input, Output: output, Metadata: meta}, nil
}

func (r *Remapper) transform(ctx context.Context, input, output string, meta *modmeta.Metadata) error {
	fail := func(stage Stage, err error) error {
		return &Error{Archive: input, Stage: stage, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(StageTransform, err)
	}

	source := meta.SourceNamespace(r.opts.Source)
	table, err := r.builder.Build(source, r.opts.Target)
	if err != nil {
		return fail(StageMapping, err)
	}
	// Archives without refmaps do not need the refmap namespace.
	var refMapper *mapping.ReferenceMapper
	if len(meta.Refmaps) > 0 {
		refTable, err := r.builder.Build(r.opts.RefmapSource, r.opts.Target)
		if err != nil {
			return fail(StageMapping, err)
		}
		refMapper = mapping.NewReferenceMapper(refTable)
	}

	var widener *accesswidener.File
	if meta.AccessWidener != nil {
		awTable, err := r.builder.Build(meta.AccessWidener.Namespace, r.opts.Target)
		if err != nil {
			return fail(StageMapping, err)
		}
		widener = meta.AccessWidener.Remap(awTable)
	}

	stats := table.Stats()
	r.logger.Debug("mapping table ready",
		"from", source, "to", r.opts.Target,
		"classes", stats.Classes, "fields", stats.Fields, "methods", stats.Methods, "conflicts", stats.Conflicts)

	p := transform.Rename(transform.NewClassRenamer(table, r.logger)).
		Configs(transform.NewMixinConfigRewriter(meta, table, r.logger)).
		Refmaps(transform.NewRefmapRewriter(meta, refMapper)).
		Widen(transform.NewAccessWidenerApplier(meta.Descriptor.AccessWidener, widener, r.logger)).
		Provenance(transform.NewProvenanceGenerator(meta.ModID()))
	if err := p.Run(input, output); err != nil {
		return fail(StageTransform, err)
	}
	r.logger.Info("remapped", "mod", meta.ModID(), "output", filepath.Base(output))
	return nil
}
