// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/pkg/types"
)

// GetBlacklist returns the blacklist entry for a PMID or DOI in any
// accepted input form.
func (s *Store) GetBlacklist(ctx context.Context, input string) (*types.BlacklistEntry, error) {
	kind, canon := s.ids.Normalize(input)
	switch kind {
	case identifier.KindPMID:
		return loadOne[types.BlacklistEntry](ctx, s, types.KindBlacklist, IndexBlacklistPMID, canon)
	case identifier.KindDOI:
		return loadOne[types.BlacklistEntry](ctx, s, types.KindBlacklist, IndexBlacklistDOI, canon)
	default:
		return nil, fmt.Errorf("%w: blacklist %q", ErrNotFound, input)
	}
}

// SaveBlacklist writes a blacklist entry.
func (s *Store) SaveBlacklist(ctx context.Context, b *types.BlacklistEntry, actor string) (bool, error) {
	if b.PMID == "" && b.DOI == "" {
		return false, fmt.Errorf("%w: blacklist entry needs a pmid or doi", ErrInvalid)
	}
	return s.save(ctx, b, types.KindBlacklist, actor)
}

// DeleteBlacklist removes the blacklist entry b.
func (s *Store) DeleteBlacklist(ctx context.Context, b *types.BlacklistEntry, actor string) error {
	return s.remove(ctx, b, actor)
}

// AllBlacklist returns every blacklist entry.
func (s *Store) AllBlacklist(ctx context.Context) ([]*types.BlacklistEntry, error) {
	return loadAll[types.BlacklistEntry](ctx, s, types.KindBlacklist)
}
