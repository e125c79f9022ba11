// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"archive/zip"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// SyntheticTime is the modification time of entries created by a stage.
var SyntheticTime = time.Date(1980, time.February, 1, 0, 0, 0, 0, time.UTC)

type (
	// Entry is one archive member held in memory.
	Entry struct {
		Name     string
		Data     []byte
		Modified time.Time
		// Method is the zip compression method the entry is written with.
		Method uint16
	}

	// Transformer rewrites single entries. Returning the entry unchanged is
	// the common case.
	Transformer interface {
		Transform(e Entry) (Entry, error)
	}

	// Finisher is implemented by transformers that emit extra entries after
	// the last input entry has been seen.
	Finisher interface {
		Finish() ([]Entry, error)
	}

	// ArchiveBinder is implemented by transformers that look up other entries
	// of the archive being transformed. The pipeline binds the input archive
	// before the first entry.
	ArchiveBinder interface {
		BindArchive(fsys fs.FS)
	}

	// TransformerFunc adapts a function to Transformer.
	TransformerFunc func(e Entry) (Entry, error)

	// Nop passes every entry through.
	Nop struct{}
)

// Transform calls f(e).
func (f TransformerFunc) Transform(e Entry) (Entry, error) { return f(e) }

// Transform returns e.
func (Nop) Transform(e Entry) (Entry, error) { return e, nil }

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// IsClass reports whether the entry is a class file.
func (e Entry) IsClass() bool {
	return strings.HasSuffix(e.Name, ".class")
}

// NewEntry creates a synthetic entry stamped with SyntheticTime.
func NewEntry(name string, data []byte) Entry {
	return Entry{Name: name, Data: data, Modified: SyntheticTime, Method: zip.Deflate}
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}
