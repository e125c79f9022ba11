// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"github.com/charmbracelet/log"

	"github.com/modbridge/modbridge/pkg/accesswidener"
	"github.com/modbridge/modbridge/pkg/classfile"
)

// AccessWidenerApplier widens the access of the classes and members named
// by an access widener and rewrites the widener file itself. It runs after
// renaming, so the widener must already be in the destination namespace.
type AccessWidenerApplier struct {
	path    string
	file    *accesswidener.File
	widener *accesswidener.Widener
	logger  *log.Logger
}

// NewAccessWidenerApplier creates an applier for f, stored in the archive at
// path. A nil f passes every entry through.
func NewAccessWidenerApplier(path string, f *accesswidener.File, logger *log.Logger) *AccessWidenerApplier {
	return &AccessWidenerApplier{
		path:    path,
		file:    f,
		widener: accesswidener.NewWidener(f),
		logger:  orDiscard(logger),
	}
}

// Transform implements Transformer.
func (a *AccessWidenerApplier) Transform(e Entry) (Entry, error) {
	if a.file == nil {
		return e, nil
	}
	if e.Name == a.path {
		e.Data = a.file.Bytes()
		return e, nil
	}
	name, ok := ClassName(e.Name)
	if !ok || !a.widener.Targets(name) || !classfile.IsClass(e.Data) {
		return e, nil
	}
	cf, err := classfile.Parse(e.Data)
	if err != nil {
		return e, err
	}
	changed, err := a.widener.Apply(cf)
	if err != nil {
		return e, err
	}
	if !changed {
		return e, nil
	}
	if e.Data, err = cf.Bytes(); err != nil {
		return e, err
	}
	a.logger.Debug("widened access", "class", name)
	return e, nil
}
