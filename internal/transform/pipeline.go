// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// outputPerm is the mode of published archives, before the umask.
const outputPerm = 0o644

// ErrEntryCollision is the cause reported when two entries end up at the same path.
var ErrEntryCollision = errors.New("entry collision")

type (
	// Pipeline is an ordered chain of stages. A Pipeline holds per-run state
	// in its stages and must not be reused across archives.
	Pipeline struct {
		stages []stage
	}

	stage struct {
		name Stage
		t    Transformer
	}

	// RenameStep is a chain holding the class renamer.
	RenameStep struct{ stages []stage }

	// ConfigsStep is a chain holding the renamer and the mixin config rewriter.
	ConfigsStep struct{ stages []stage }

	// RefmapsStep is a chain up to the reference map rewriter.
	RefmapsStep struct{ stages []stage }

	// WidenStep is a chain up to the access widener applier.
	WidenStep struct{ stages []stage }
)

func push(stages []stage, name Stage, t Transformer) []stage {
	if t == nil {
		t = Nop{}
	}
	return append(stages[:len(stages):len(stages)], stage{name: name, t: t})
}

// Rename starts a chain with the class symbol renamer. A nil transformer
// passes entries through.
func Rename(t Transformer) RenameStep {
	return RenameStep{stages: push(nil, StageRename, t)}
}

// Configs adds the mixin config rewriter.
func (s RenameStep) Configs(t Transformer) ConfigsStep {
	return ConfigsStep{stages: push(s.stages, StageConfigs, t)}
}

// Refmaps adds the reference map rewriter.
func (s ConfigsStep) Refmaps(t Transformer) RefmapsStep {
	return RefmapsStep{stages: push(s.stages, StageRefmaps, t)}
}

// Widen adds the access widener applier.
func (s RefmapsStep) Widen(t Transformer) WidenStep {
	return WidenStep{stages: push(s.stages, StageWiden, t)}
}

// Provenance adds the provenance generator and completes the pipeline.
func (s WidenStep) Provenance(t Transformer) *Pipeline {
	return &Pipeline{stages: push(s.stages, StageProvenance, t)}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []Stage {
	names := make([]Stage, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// Run transforms the archive at input into output. The output is written
// to a temporary file next to it and renamed into place only on success,
// so a failed run never leaves a partial archive behind.
func (p *Pipeline) Run(input, output string) (err error) {
	zr, err := zip.OpenReader(input)
	if err != nil {
		return &StageError{Stage: StageIO, Cause: err}
	}
	defer func() { _ = zr.Close() }() // read-only archive

	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".tmp-*")
	if err != nil {
		return &StageError{Stage: StageIO, Cause: fmt.Errorf("creating temp file: %w", err)}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := p.Write(&zr.Reader, tmp); err != nil {
		return err
	}
	// CreateTemp uses 0600; outputs are ordinary archives.
	if err := tmp.Chmod(outputPerm); err != nil {
		return &StageError{Stage: StageIO, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &StageError{Stage: StageIO, Cause: err}
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return &StageError{Stage: StageIO, Cause: fmt.Errorf("replacing output: %w", err)}
	}
	committed = true
	return nil
}

// Write streams the entries of zr through the stages into w as a zip archive.
func (p *Pipeline) Write(zr *zip.Reader, w io.Writer) error {
	zw := zip.NewWriter(w)
	// written maps each output path to the stage that relocated an entry there, or "".
	written := make(map[string]Stage, len(zr.File))
	for _, s := range p.stages {
		if b, ok := s.t.(ArchiveBinder); ok {
			b.BindArchive(zr)
		}
	}

	for _, f := range zr.File {
		e, err := readEntry(f)
		if err != nil {
			return &StageError{Stage: StageIO, Entry: f.Name, Cause: err}
		}
		source := e.Name

		var movedBy Stage
		if !e.IsDir() {
			for _, s := range p.stages {
				before := e.Name
				if e, err = s.t.Transform(e); err != nil {
					return &StageError{Stage: s.name, Entry: source, Cause: err}
				}
				if e.Name != before {
					movedBy = s.name
				}
			}
		}

		if prev, dup := written[e.Name]; dup {
			if movedBy == "" && prev == "" {
				// Duplicate input entry: the first one wins.
				continue
			}
			if movedBy == "" {
				movedBy = prev
			}
			return &StageError{Stage: movedBy, Entry: source, Cause: fmt.Errorf("%w: %s", ErrEntryCollision, e.Name)}
		}
		written[e.Name] = movedBy
		if err := writeEntry(zw, e); err != nil {
			return &StageError{Stage: StageIO, Entry: e.Name, Cause: err}
		}
	}

	for _, s := range p.stages {
		fin, ok := s.t.(Finisher)
		if !ok {
			continue
		}
		extra, err := fin.Finish()
		if err != nil {
			return &StageError{Stage: s.name, Cause: err}
		}
		for _, e := range extra {
			if _, dup := written[e.Name]; dup {
				return &StageError{Stage: s.name, Entry: e.Name, Cause: ErrEntryCollision}
			}
			written[e.Name] = s.name
			if err := writeEntry(zw, e); err != nil {
				return &StageError{Stage: StageIO, Entry: e.Name, Cause: err}
			}
		}
	}

	if err := zw.Close(); err != nil {
		return &StageError{Stage: StageIO, Cause: err}
	}
	return nil
}

func readEntry(f *zip.File) (_ Entry, err error) {
	e := Entry{Name: f.Name, Modified: f.Modified, Method: f.Method}
	if e.IsDir() {
		return e, nil
	}
	rc, err := f.Open()
	if err != nil {
		return e, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	e.Data, err = io.ReadAll(rc)
	return e, err
}

func writeEntry(zw *zip.Writer, e Entry) error {
	method := e.Method
	if method != zip.Store {
		method = zip.Deflate
	}
	if e.IsDir() {
		method = zip.Store
	}
	modified := e.Modified
	if modified.IsZero() {
		modified = SyntheticTime
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     e.Name,
		Method:   method,
		Modified: modified.UTC(),
	})
	if err != nil {
		return err
	}
	if e.IsDir() {
		return nil
	}
	_, err = w.Write(e.Data)
	return err
}
