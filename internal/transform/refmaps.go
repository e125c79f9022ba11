// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"bytes"
	"encoding/json"

	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

type (
	// RefmapRewriter rewrites the targets recorded in mixin reference maps:
	// the top-level "mappings" section and every namespace section under "data".
	RefmapRewriter struct {
		meta   *modmeta.Metadata
		mapper *mapping.ReferenceMapper
	}

	// refs maps mixin class -> reference -> target.
	refs map[string]map[string]string
)

// NewRefmapRewriter creates a rewriter for the reference maps named in meta.
func NewRefmapRewriter(meta *modmeta.Metadata, mapper *mapping.ReferenceMapper) *RefmapRewriter {
	return &RefmapRewriter{meta: meta, mapper: mapper}
}

// Transform implements Transformer.
func (r *RefmapRewriter) Transform(e Entry) (Entry, error) {
	if r.meta == nil || r.mapper == nil || !r.meta.IsRefmap(e.Name) {
		return e, nil
	}
	if t := r.mapper.Table(); t == nil || t.Empty() {
		return e, nil
	}

	var doc map[string]json.RawMessage
	err := json.Unmarshal(e.Data, &doc)
	if err != nil {
		return e, err
	}
	changed := false

	if raw, ok := doc["mappings"]; ok {
		var m refs
		if err := json.Unmarshal(raw, &m); err != nil {
			return e, err
		}
		if r.mapRefs(m) {
			if doc["mappings"], err = json.Marshal(m); err != nil {
				return e, err
			}
			changed = true
		}
	}
	if raw, ok := doc["data"]; ok {
		var data map[string]refs
		if err := json.Unmarshal(raw, &data); err != nil {
			return e, err
		}
		dataChanged := false
		for _, m := range data {
			dataChanged = r.mapRefs(m) || dataChanged
		}
		if dataChanged {
			if doc["data"], err = json.Marshal(data); err != nil {
				return e, err
			}
			changed = true
		}
	}
	if !changed {
		return e, nil
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return e, err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		return e, err
	}
	pretty.WriteByte('\n')
	e.Data = pretty.Bytes()
	return e, nil
}

func (r *RefmapRewriter) mapRefs(m refs) bool {
	changed := false
	for mixin, targets := range m {
		for ref, target := range targets {
			if mapped := r.mapper.Map(mixin, target); mapped != target {
				targets[ref] = mapped
				changed = true
			}
		}
	}
	return changed
}
