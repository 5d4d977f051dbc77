// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/pdiddy/publications/internal/account"
	"github.com/pdiddy/publications/internal/acquire"
	"github.com/pdiddy/publications/internal/bibsource"
	"github.com/pdiddy/publications/internal/curate"
	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/internal/labels"
	"github.com/pdiddy/publications/internal/mail"
	"github.com/pdiddy/publications/internal/store"
)

// app holds the wired components for one command invocation.
type app struct {
	store    *store.Store
	labels   *labels.Coordinator
	pipeline *acquire.Pipeline
	curator  *curate.Curator
	accounts *account.Service
}

func openApp(ctx context.Context) (*app, error) {
	st, err := store.Open(ctx, settings.Store,
		store.WithNormalizer(identifier.New(settings.Acquisition.IdentifierPrefixes)),
		store.WithLogger(logger.With().Str("component", "store").Logger()))
	if err != nil {
		return nil, err
	}
	coord := labels.New(st, settings.Acquisition.Qualifiers,
		labels.WithLogger(logger.With().Str("component", "labels").Logger()))

	srcLog := logger.With().Str("component", "bibsource").Logger()
	pubmed := bibsource.NewPubMed(settings.PubMed, bibsource.WithLogger(srcLog))
	crossref := bibsource.NewCrossref(settings.Crossref, bibsource.WithLogger(srcLog))

	return &app{
		store:  st,
		labels: coord,
		pipeline: acquire.New(st, coord, pubmed, crossref, settings.Acquisition,
			acquire.WithLogger(logger.With().Str("component", "acquire").Logger())),
		curator: curate.New(st, coord, settings.Acquisition.AcquirePeriod,
			curate.WithLogger(logger.With().Str("component", "curate").Logger())),
		accounts: account.New(st, settings.Account, mail.New(settings.Mail),
			account.WithLogger(logger.With().Str("component", "account").Logger()),
			account.WithSite(settings.Site.Name, settings.Server.BaseURL)),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }
