// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

// MixinConfigRewriter rewrites the class lists of mixin configurations.
// Only the list values that change are replaced; every other byte of the
// configuration is kept.
type MixinConfigRewriter struct {
	configs map[string]*modmeta.PatchConfig
	table   *mapping.Table
	logger  *log.Logger
}

// NewMixinConfigRewriter creates a rewriter for the configurations in meta.
func NewMixinConfigRewriter(meta *modmeta.Metadata, t *mapping.Table, logger *log.Logger) *MixinConfigRewriter {
	r := &MixinConfigRewriter{
		configs: make(map[string]*modmeta.PatchConfig),
		table:   t,
		logger:  orDiscard(logger),
	}
	if meta != nil {
		for _, cfg := range meta.PatchConfigs {
			r.configs[cfg.Path] = cfg
		}
	}
	return r
}

// Transform implements Transformer.
func (r *MixinConfigRewriter) Transform(e Entry) (Entry, error) {
	cfg, ok := r.configs[e.Name]
	if !ok || r.table == nil || r.table.Empty() {
		return e, nil
	}
	data, err := r.rewrite(cfg, e.Data)
	if err != nil {
		return e, &modmeta.PatchConfigError{Path: e.Name, Err: err}
	}
	if data != nil {
		e.Data = data
	}
	return e, nil
}

// rewrite returns the new content, or nil when nothing changed.
func (r *MixinConfigRewriter) rewrite(cfg *modmeta.PatchConfig, data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out bytes.Buffer
	last := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if !slices.Contains(modmeta.ClassLists, key) || string(raw) == "null" {
			continue
		}
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		if !r.mapNames(cfg, names) {
			continue
		}
		list, err := json.Marshal(names)
		if err != nil {
			return nil, err
		}
		end := int(dec.InputOffset())
		start := end - len(raw)
		out.Write(data[last:start])
		out.Write(list)
		last = end
	}
	if last == 0 {
		return nil, nil
	}
	out.Write(data[last:])
	return out.Bytes(), nil
}

// mapNames maps names in place and reports whether any changed. A class
// whose mapped name leaves the configuration's package is kept as is.
func (r *MixinConfigRewriter) mapNames(cfg *modmeta.PatchConfig, names []string) bool {
	pkg := cfg.PackagePath()
	changed := false
	for i, name := range names {
		full := cfg.ClassPath(name)
		mapped := r.table.Class(full)
		if mapped == full {
			continue
		}
		rel, ok := strings.CutPrefix(mapped, pkg)
		if !ok {
			r.logger.Warn("mapped mixin class leaves its package", "config", cfg.Path, "class", name, "mapped", mapped)
			continue
		}
		names[i] = strings.ReplaceAll(rel, "/", ".")
		changed = true
	}
	return changed
}
