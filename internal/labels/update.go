// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package labels

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// eachPublication applies mutate to every publication carrying label and
// saves the ones it changed. It returns the number saved.
func (c *Coordinator) eachPublication(ctx context.Context, label, actor string, mutate func(*types.Publication) bool) (int, error) {
	pubs, err := c.store.PublicationsByLabel(ctx, label)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range pubs {
		saved, err := retry(ctx, c.retries, p, func(ctx context.Context, id string) (*types.Publication, error) {
			return c.store.GetPublication(ctx, id)
		}, func(p *types.Publication) (bool, error) {
			if p.Labels == nil || !mutate(p) {
				return false, nil
			}
			return c.store.SavePublication(ctx, p, actor)
		})
		if err != nil {
			return n, fmt.Errorf("updating publication %s: %w", p.ID, err)
		}
		if saved {
			n++
		}
	}
	return n, nil
}

// eachAccount applies mutate to every account listing label and saves the
// ones it changed. It returns the number saved.
func (c *Coordinator) eachAccount(ctx context.Context, label, actor string, mutate func(*types.Account) bool) (int, error) {
	accounts, err := c.store.AccountsByLabel(ctx, label)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range accounts {
		saved, err := retry(ctx, c.retries, a, func(ctx context.Context, id string) (*types.Account, error) {
			return c.store.GetAccount(ctx, a.Email)
		}, func(a *types.Account) (bool, error) {
			if !mutate(a) {
				return false, nil
			}
			return c.store.SaveAccount(ctx, a, actor)
		})
		if err != nil {
			return n, fmt.Errorf("updating account %s: %w", a.Email, err)
		}
		if saved {
			n++
		}
	}
	return n, nil
}

// retry runs apply on e and, after a conflict, on a fresh copy from
// reload, at most attempts times. A document deleted meanwhile is skipped.
func retry[T any, P interface {
	*T
	types.Entity
}](ctx context.Context, attempts int, e P, reload func(context.Context, string) (P, error), apply func(P) (bool, error)) (bool, error) {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			e, err = reload(ctx, e.Base().ID)
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
		}
		var saved bool
		saved, err = apply(e)
		if !errors.Is(err, store.ErrConflict) {
			return saved, err
		}
	}
	return false, err
}
