// SPDX-License-Identifier: MPL-2.0

// Package scan discovers mod archives in a directory and remaps them
// concurrently. Failures are isolated per archive and reported as results.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/modbridge/modbridge/internal/issue"
	"github.com/modbridge/modbridge/internal/remap"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

const archiveSuffix = ".jar"

const (
	// StatusRemapped means the archive was remapped or found in the cache.
	StatusRemapped Status = "remapped"
	// StatusSkipped means the archive is not a mod and was left alone.
	StatusSkipped Status = "skipped"
	// StatusFailed means remapping the archive failed.
	StatusFailed Status = "failed"
)

// ErrInvalidPattern is returned for exclusion globs that do not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

type (
	// Status is the outcome for one archive.
	Status string

	// Remapper remaps a single archive.
	Remapper interface {
		Remap(ctx context.Context, input string) (*remap.Result, error)
	}

	// Options configures a Scanner.
	Options struct {
		// Exclude holds doublestar globs matched against archive file names.
		Exclude []string
		// Workers bounds concurrent remaps. Zero means one per CPU.
		Workers int
	}

	// Scanner remaps every candidate archive of a directory.
	Scanner struct {
		remapper Remapper
		opts     Options
		logger   *log.Logger
	}

	// Result is the outcome for one archive.
	Result struct {
		Input  string
		Status Status
		// Remap is set for StatusRemapped.
		Remap *remap.Result
		// Issue classifies Err; zero when unclassified.
		Issue issue.Id
		Err   error
	}
)

// New creates a Scanner. A nil logger discards output.
func New(r Remapper, opts Options, logger *log.Logger) (*Scanner, error) {
	for _, pat := range opts.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pat)
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scanner{remapper: r, opts: opts, logger: logger.WithPrefix("scan")}, nil
}

// Candidates lists the archives of dir that are not excluded, sorted by
// lower-cased file name.
func (s *Scanner) Candidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing mods directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), archiveSuffix) {
			continue
		}
		if s.excluded(name) {
			s.logger.Debug("excluded", "archive", name)
			continue
		}
		names = append(names, name)
	}
	slices.SortStableFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

func (s *Scanner) excluded(name string) bool {
	for _, pat := range s.opts.Exclude {
		if matched, err := doublestar.Match(pat, name); err == nil && matched {
			return true
		}
	}
	return false
}

// Scan remaps every candidate of dir. Results keep the candidate order. The
// scan fails only when dir cannot be listed or ctx is canceled; per-archive
// failures are reported in the results.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]Result, error) {
	paths, err := s.Candidates(dir)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = s.remapOne(gctx, path)
			return nil
		})
	}
	_ = g.Wait() // workers never fail; outcomes live in results

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Scanner) remapOne(ctx context.Context, path string) Result {
	res, err := s.remapper.Remap(ctx, path)
	r := NewResult(path, res, err)
	switch r.Status {
	case StatusSkipped:
		s.logger.Debug("not a mod", "archive", path)
	case StatusFailed:
		s.logger.Error("remap failed", "archive", path, "error", err)
	}
	return r
}

// NewResult classifies the outcome of remapping input. Archives without a
// mod descriptor are skipped rather than failed.
func NewResult(input string, res *remap.Result, err error) Result {
	switch {
	case err == nil:
		return Result{Input: input, Status: StatusRemapped, Remap: res}
	case errors.Is(err, modmeta.ErrMissingDescriptor):
		return Result{Input: input, Status: StatusSkipped, Issue: issue.MissingDescriptorId, Err: err}
	default:
		return Result{Input: input, Status: StatusFailed, Issue: issue.Classify(err), Err: err}
	}
}

// Summary counts results per status.
func Summary(results []Result) map[Status]int {
	counts := make(map[Status]int, 3)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
