// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/pkg/types"
)

// GetAccount returns the account with the given email in any case.
func (s *Store) GetAccount(ctx context.Context, email string) (*types.Account, error) {
	return loadOne[types.Account](ctx, s, types.KindAccount, IndexAccountEmail, normalize.Email(email))
}

// GetAccountByAPIKey returns the account holding key.
func (s *Store) GetAccountByAPIKey(ctx context.Context, key string) (*types.Account, error) {
	return loadOne[types.Account](ctx, s, types.KindAccount, IndexAccountAPIKey, key)
}

// SaveAccount writes a. The email is stored lowercased and trimmed.
func (s *Store) SaveAccount(ctx context.Context, a *types.Account, actor string) (bool, error) {
	a.Email = normalize.Email(a.Email)
	if a.Email == "" {
		return false, fmt.Errorf("%w: account has no email", ErrInvalid)
	}
	if !a.Role.Valid() {
		return false, fmt.Errorf("%w: role %q", ErrInvalid, a.Role)
	}
	return s.save(ctx, a, types.KindAccount, actor)
}

// DeleteAccount deletes a and its log entries.
func (s *Store) DeleteAccount(ctx context.Context, a *types.Account, actor string) error {
	return s.remove(ctx, a, actor)
}

// AccountsByLabel returns the accounts listing label among their defaults.
func (s *Store) AccountsByLabel(ctx context.Context, label string) ([]*types.Account, error) {
	return loadMany[types.Account](ctx, s, types.KindAccount, docstore.Exact(IndexAccountLabel, normalizeLabel(label)))
}

// AccountsByRole returns the accounts with role.
func (s *Store) AccountsByRole(ctx context.Context, role types.Role) ([]*types.Account, error) {
	return loadMany[types.Account](ctx, s, types.KindAccount, docstore.Exact(IndexAccountRole, string(role)))
}

// AllAccounts returns every account ordered by email.
func (s *Store) AllAccounts(ctx context.Context) ([]*types.Account, error) {
	return loadMany[types.Account](ctx, s, types.KindAccount, docstore.All(IndexAccountEmail))
}
