// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package labels coordinates the label lifecycle across the Label
// documents, the publications carrying them and the accounts listing
// them as defaults.
//
// Every operation mutates the publications first, then the accounts and
// finally the Label document itself, so that an interrupted operation
// leaves a state the same call can complete when re-driven.
package labels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// ErrExists is returned when a label value is already taken.
var ErrExists = errors.New("label already exists")

// DefaultRetries bounds the attempts to save one document after conflicts.
const DefaultRetries = 3

// Coordinator runs label operations against a store.
type Coordinator struct {
	store      *store.Store
	qualifiers types.Qualifiers
	retries    int
	logger     zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetries sets the per-document retry budget on conflicts.
func WithRetries(n int) Option {
	return func(c *Coordinator) { c.retries = n }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New returns a Coordinator ranking qualifiers by qs.
func New(s *store.Store, qs types.Qualifiers, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      s,
		qualifiers: qs,
		retries:    DefaultRetries,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Qualifiers returns the qualifier enumeration.
func (c *Coordinator) Qualifiers() types.Qualifiers { return c.qualifiers }

// Create adds a new Label.
func (c *Coordinator) Create(ctx context.Context, value, actor string) (*types.Label, error) {
	value = normalize.Whitespace(value)
	if _, err := c.store.GetLabel(ctx, value); err == nil {
		return nil, fmt.Errorf("%w: %q", ErrExists, value)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	l := &types.Label{Value: value}
	if _, err := c.store.SaveLabel(ctx, l, actor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", ErrExists, value)
		}
		return nil, err
	}
	c.logger.Info().Str("label", l.Value).Str("actor", actor).Msg("created label")
	return l, nil
}

// Rename changes the display value of the label old to value, carrying
// qualifiers over on every publication and the entry on every account.
// A rename that only changes case is allowed.
func (c *Coordinator) Rename(ctx context.Context, old, value, actor string) (*types.Label, error) {
	start := time.Now()
	value = normalize.Whitespace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty label value", store.ErrInvalid)
	}
	l, err := c.store.GetLabel(ctx, old)
	if err != nil {
		return nil, err
	}
	target := normalize.Value(value)
	if target != l.NormalizedValue {
		if _, err := c.store.GetLabel(ctx, value); err == nil {
			return nil, fmt.Errorf("%w: %q", ErrExists, value)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	pubs, err := c.eachPublication(ctx, l.Value, actor, func(p *types.Publication) bool {
		key, ok := find(p.Labels, l.NormalizedValue)
		if !ok || key == value {
			return false
		}
		q := p.Labels[key]
		delete(p.Labels, key)
		if other, ok := find(p.Labels, target); ok {
			q = c.qualifiers.Higher(p.Labels[other], q)
			delete(p.Labels, other)
		}
		p.Labels[value] = q
		return true
	})
	if err != nil {
		return nil, err
	}
	accounts, err := c.eachAccount(ctx, l.Value, actor, func(a *types.Account) bool {
		i := findIndex(a.Labels, l.NormalizedValue)
		if i < 0 || a.Labels[i] == value {
			return false
		}
		a.Labels[i] = value
		a.Labels = dedupe(a.Labels)
		return true
	})
	if err != nil {
		return nil, err
	}

	l.Value = value
	if err := c.saveLabel(ctx, l, actor); err != nil {
		return nil, err
	}
	c.logger.Info().Str("label", old).Str("value", value).Str("actor", actor).
		Int("publications", pubs).Int("accounts", accounts).
		Dur("elapsed", time.Since(start)).Msg("renamed label")
	return l, nil
}

// Delete removes value from every publication and account, then deletes
// the Label.
func (c *Coordinator) Delete(ctx context.Context, value, actor string) error {
	start := time.Now()
	l, err := c.store.GetLabel(ctx, value)
	if err != nil {
		return err
	}
	pubs, err := c.eachPublication(ctx, l.Value, actor, func(p *types.Publication) bool {
		key, ok := find(p.Labels, l.NormalizedValue)
		if ok {
			delete(p.Labels, key)
		}
		return ok
	})
	if err != nil {
		return err
	}
	accounts, err := c.eachAccount(ctx, l.Value, actor, func(a *types.Account) bool {
		return removeEntry(a, l.NormalizedValue)
	})
	if err != nil {
		return err
	}
	if err := c.store.DeleteLabel(ctx, l, actor); err != nil {
		return err
	}
	c.logger.Info().Str("label", l.Value).Str("actor", actor).
		Int("publications", pubs).Int("accounts", accounts).
		Dur("elapsed", time.Since(start)).Msg("deleted label")
	return nil
}

// Merge folds source into target. The source Label is deleted first so
// it cannot be reused meanwhile; a publication holding both keeps the
// higher ranked qualifier. Re-driving a merge whose source Label is
// already gone completes it. Merging a label into itself does nothing.
func (c *Coordinator) Merge(ctx context.Context, source, target, actor string) (*types.Label, error) {
	start := time.Now()
	dst, err := c.store.GetLabel(ctx, target)
	if err != nil {
		return nil, err
	}
	norm := normalize.Value(source)
	if norm == dst.NormalizedValue {
		return dst, nil
	}

	src, err := c.store.GetLabel(ctx, source)
	switch {
	case err == nil:
		if err := c.store.DeleteLabel(ctx, src, actor); err != nil {
			return nil, err
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	pubs, err := c.eachPublication(ctx, source, actor, func(p *types.Publication) bool {
		key, ok := find(p.Labels, norm)
		if !ok {
			return false
		}
		q := c.qualifiers.Coerce(p.Labels[key])
		delete(p.Labels, key)
		if have, ok := find(p.Labels, dst.NormalizedValue); ok {
			p.Labels[have] = c.qualifiers.Higher(p.Labels[have], q)
		} else {
			p.Labels[dst.Value] = q
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	accounts, err := c.eachAccount(ctx, source, actor, func(a *types.Account) bool {
		if !removeEntry(a, norm) {
			return false
		}
		if findIndex(a.Labels, dst.NormalizedValue) < 0 {
			a.Labels = append(a.Labels, dst.Value)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info().Str("label", source).Str("target", dst.Value).Str("actor", actor).
		Int("publications", pubs).Int("accounts", accounts).
		Dur("elapsed", time.Since(start)).Msg("merged label")
	return dst, nil
}

func (c *Coordinator) saveLabel(ctx context.Context, l *types.Label, actor string) error {
	_, err := c.store.SaveLabel(ctx, l, actor)
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %q", ErrExists, l.Value)
	}
	return err
}

func removeEntry(a *types.Account, norm string) bool {
	i := findIndex(a.Labels, norm)
	if i < 0 {
		return false
	}
	a.Labels = append(a.Labels[:i], a.Labels[i+1:]...)
	return true
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		n := normalize.Value(v)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, v)
	}
	return out
}
