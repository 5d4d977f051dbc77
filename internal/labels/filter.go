// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package labels

import (
	"context"
	"errors"

	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// Resolve keeps the requested labels that match an existing Label in any
// case, keyed by the Label's display value. Qualifiers outside the site
// enumeration become absent. When two requested spellings resolve to the
// same Label the higher qualifier wins.
func (c *Coordinator) Resolve(ctx context.Context, requested types.Labels) (types.Labels, error) {
	out := make(types.Labels, len(requested))
	for _, value := range requested.Keys() {
		l, err := c.store.GetLabel(ctx, value)
		if errors.Is(err, store.ErrNotFound) {
			c.logger.Debug().Str("label", value).Msg("ignoring unknown label")
			continue
		}
		if err != nil {
			return nil, err
		}
		q := c.qualifiers.Coerce(requested[value])
		if have, ok := out[l.Value]; ok {
			q = c.qualifiers.Higher(have, q)
		}
		out[l.Value] = q
	}
	return out, nil
}

// Combine merges src into dst. A label already in dst keeps the higher
// ranked of the two qualifiers. It reports whether dst changed.
func Combine(dst types.Labels, src types.Labels, qs types.Qualifiers) bool {
	changed := false
	for _, value := range src.Keys() {
		q := src[value]
		key, ok := find(dst, normalize.Value(value))
		if !ok {
			dst[value] = q
			changed = true
			continue
		}
		if higher := qs.Higher(dst[key], q); higher != dst[key] {
			dst[key] = higher
			changed = true
		}
	}
	return changed
}

// find returns the key of labels whose normalized form is norm.
func find(labels types.Labels, norm string) (string, bool) {
	for k := range labels {
		if normalize.Value(k) == norm {
			return k, true
		}
	}
	return "", false
}

// findIndex returns the position in values of the entry whose normalized
// form is norm, or -1.
func findIndex(values []string, norm string) int {
	for i, v := range values {
		if normalize.Value(v) == norm {
			return i
		}
	}
	return -1
}
