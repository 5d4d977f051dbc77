// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/pkg/types"
)

// OpenDocs opens the document store backend selected by cfg with the
// publications indexes.
func OpenDocs(ctx context.Context, cfg types.StoreConfig, logger zerolog.Logger) (docstore.Store, error) {
	switch cfg.Driver {
	case types.DriverMemory:
		return docstore.NewMemory(Indexes()...), nil
	case types.DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = "publications.db"
		}
		return docstore.OpenSQLite(ctx, path, Indexes()...)
	case types.DriverPostgres:
		return docstore.OpenPostgres(ctx, cfg.DSN, docstore.PostgresOptions{Logger: logger, Password: cfg.Password}, Indexes()...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Open opens the configured backend and wraps it in a Store.
func Open(ctx context.Context, cfg types.StoreConfig, opts ...Option) (*Store, error) {
	s := New(nil, opts...)
	docs, err := OpenDocs(ctx, cfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.docs = docs
	return s, nil
}
