// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/pkg/types"
)

func normalizeLabel(value string) string {
	return normalize.Value(value)
}

// GetLabel returns the label whose normalized value equals that of value.
func (s *Store) GetLabel(ctx context.Context, value string) (*types.Label, error) {
	return loadOne[types.Label](ctx, s, types.KindLabel, IndexLabelNormalizedValue, normalizeLabel(value))
}

// SaveLabel writes l, deriving its normalized value from its display value.
func (s *Store) SaveLabel(ctx context.Context, l *types.Label, actor string) (bool, error) {
	l.Value = normalize.Whitespace(l.Value)
	if l.Value == "" {
		return false, fmt.Errorf("%w: empty label value", ErrInvalid)
	}
	l.NormalizedValue = normalizeLabel(l.Value)
	return s.save(ctx, l, types.KindLabel, actor)
}

// DeleteLabel deletes l and its log entries.
func (s *Store) DeleteLabel(ctx context.Context, l *types.Label, actor string) error {
	return s.remove(ctx, l, actor)
}

// AllLabels returns every label ordered by display value.
func (s *Store) AllLabels(ctx context.Context) ([]*types.Label, error) {
	labels, err := loadMany[types.Label](ctx, s, types.KindLabel, docstore.All(IndexLabelValue))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].NormalizedValue < labels[j].NormalizedValue
	})
	return labels, nil
}

// SearchLabels returns the labels having a word of their value starting
// with term.
func (s *Store) SearchLabels(ctx context.Context, term string) ([]*types.Label, error) {
	return loadMany[types.Label](ctx, s, types.KindLabel, docstore.Prefix(IndexLabelParts, normalize.Value(term)))
}
