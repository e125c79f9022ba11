// SPDX-License-Identifier: MPL-2.0

// Package cache memoizes archive remapping by input content. Each output
// archive has a TOML sidecar recording the cache version and the SHA-256 of
// the input it was produced from; a matching sidecar means the output can be
// reused as is.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// SidecarSuffix is appended to the output path to name its record.
const SidecarSuffix = ".cache.toml"

// ErrCacheIO marks a sidecar that could not be read or written. Such
// failures are logged and treated as misses; they never fail a lookup.
var ErrCacheIO = errors.New("cache I/O failure")

type (
	// Cache coordinates writers of cached outputs. At most one compute runs
	// per output path at a time, within the process and, on Linux, across
	// processes.
	Cache struct {
		logger *log.Logger

		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}

	// Record is the sidecar content.
	Record struct {
		Version     int    `toml:"version"`
		Input       string `toml:"input"`
		InputSHA256 string `toml:"input_sha256"`
		Output      string `toml:"output"`
		// Key identifies whatever else the output depends on, such as the
		// mappings it was produced with.
		Key string `toml:"key,omitempty"`
	}
)

// New creates a cache. A nil logger discards output.
func New(logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cache{logger: logger, locks: make(map[string]*sync.Mutex)}
}

// SidecarPath returns the record path for an output.
func SidecarPath(outputPath string) string {
	return outputPath + SidecarSuffix
}

// GetOrCompute returns outputPath, running compute first unless the output
// exists and its record matches version and the current content of
// inputPath. compute must write outputPath. Bumping version invalidates
// every previous record.
func (c *Cache) GetOrCompute(version int, inputPath, outputPath string, compute func() error) (string, error) {
	return c.GetOrComputeKeyed(version, "", inputPath, outputPath, compute)
}

// GetOrComputeKeyed is GetOrCompute with an extra identity: a record only
// matches when it was written with the same key.
func (c *Cache) GetOrComputeKeyed(version int, key, inputPath, outputPath string, compute func() error) (string, error) {
	unlock := c.lock(outputPath)
	defer unlock()

	digest, err := HashFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("hashing input: %w", err)
	}
	want := Record{Version: version, Input: inputPath, InputSHA256: digest, Output: outputPath, Key: key}

	if c.hit(want) {
		c.logger.Debug("cache hit", "input", inputPath, "output", outputPath)
		return outputPath, nil
	}
	c.logger.Debug("cache miss", "input", inputPath, "output", outputPath)

	if err := compute(); err != nil {
		return "", err
	}
	if err := writeRecord(want); err != nil {
		c.logger.Warn("failed to write cache record", "output", outputPath, "error", err)
	}
	return outputPath, nil
}

func (c *Cache) hit(want Record) bool {
	if _, err := os.Stat(want.Output); err != nil {
		return false
	}
	got, err := ReadRecord(want.Output)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("ignoring unreadable cache record", "output", want.Output, "error", err)
		}
		return false
	}
	return *got == want
}

// lock serializes writers of outputPath. The flock is best effort: when it
// cannot be taken the in-process mutex still applies.
func (c *Cache) lock(outputPath string) func() {
	c.mu.Lock()
	m, ok := c.locks[outputPath]
	if !ok {
		m = &sync.Mutex{}
		c.locks[outputPath] = m
	}
	c.mu.Unlock()

	m.Lock()
	fl, err := acquireFileLock(outputPath + ".lock")
	if err != nil {
		if errors.Is(err, errFlockUnavailable) {
			c.logger.Debug("flock unavailable, relying on in-process lock", "error", err)
		} else {
			c.logger.Warn("flock acquisition failed, relying on in-process lock", "error", err)
		}
		return m.Unlock
	}
	return func() {
		fl.Release(c.logger)
		m.Unlock()
	}
}

// ReadRecord reads the sidecar of outputPath. Decoding failures wrap ErrCacheIO.
func ReadRecord(outputPath string) (*Record, error) {
	data, err := os.ReadFile(SidecarPath(outputPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	var r Record
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCacheIO, SidecarPath(outputPath), err)
	}
	return &r, nil
}

// writeRecord replaces the sidecar atomically.
func writeRecord(r Record) (err error) {
	data, err := toml.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	path := SidecarPath(r.Output)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	return nil
}

// HashFile returns the hex SHA-256 of the file content.
func HashFile(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
