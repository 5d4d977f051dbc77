// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns an external identifier into a stored publication:
// it classifies the identifier, enforces the blacklist, finds an existing
// record by PMID or DOI, otherwise fetches a draft from PubMed or
// Crossref, reconciles it with a record holding the draft's other
// identifier and applies the requested labels.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/publications/internal/bibsource"
	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/internal/labels"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// DefaultFetchedLimit caps a bulk request when the configuration does not.
const DefaultFetchedLimit = 10

// Options modify one acquisition.
type Options struct {
	// AllowInternal accepts an IUID and returns the stored publication.
	AllowInternal bool

	// Override removes a blacklist entry instead of failing.
	Override bool

	// Verify marks the publication as verified.
	Verify bool
}

// Outcome tells what an acquisition did to the store.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeUpdated    Outcome = "updated"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeReconciled Outcome = "reconciled"
)

// Pipeline acquires publications into a store.
type Pipeline struct {
	store        *store.Store
	labels       *labels.Coordinator
	normalizer   *identifier.Normalizer
	pubmed       bibsource.Source
	crossref     bibsource.Source
	fetchedLimit int
	pause        time.Duration
	sleep        func(context.Context, time.Duration) error
	logger       zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSleep replaces the pause used between bulk items.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// New returns a Pipeline that fetches PMIDs from pubmed and DOIs from
// crossref.
func New(s *store.Store, coord *labels.Coordinator, pubmed, crossref bibsource.Source, cfg types.AcquisitionConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        s,
		labels:       coord,
		normalizer:   identifier.New(cfg.IdentifierPrefixes),
		pubmed:       pubmed,
		crossref:     crossref,
		fetchedLimit: cfg.FetchedLimit,
		pause:        cfg.BulkPause,
		sleep:        sleep,
		logger:       zerolog.Nop(),
	}
	if p.fetchedLimit <= 0 {
		p.fetchedLimit = DefaultFetchedLimit
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire returns the publication for input on behalf of actor, creating
// or updating it as needed and merging in the requested labels.
func (p *Pipeline) Acquire(ctx context.Context, input string, requested types.Labels, actor string, opts Options) (*types.Publication, error) {
	pub, _, err := p.AcquireOutcome(ctx, input, requested, actor, opts)
	return pub, err
}

// AcquireOutcome is Acquire that also reports what was done.
func (p *Pipeline) AcquireOutcome(ctx context.Context, input string, requested types.Labels, actor string, opts Options) (*types.Publication, Outcome, error) {
	start := time.Now()
	kind, canon := p.normalizer.Normalize(input)
	log := p.logger.With().Str("identifier", canon).Str("kind", kind.String()).Str("actor", actor).Logger()

	pub, outcome, err := p.acquire(ctx, kind, canon, requested, actor, opts)
	if err != nil {
		log.Warn().Err(err).Str("error_kind", KindOf(err).String()).Dur("elapsed", time.Since(start)).Msg("acquisition failed")
		return nil, "", err
	}
	log.Info().Str("id", pub.ID).Str("outcome", string(outcome)).Dur("elapsed", time.Since(start)).Msg("acquired publication")
	return pub, outcome, nil
}

func (p *Pipeline) acquire(ctx context.Context, kind identifier.Kind, canon string, requested types.Labels, actor string, opts Options) (*types.Publication, Outcome, error) {
	switch kind {
	case identifier.KindUnknown:
		return nil, "", fmt.Errorf("%w: %q", ErrBadIdentifier, canon)
	case identifier.KindInternal:
		if !opts.AllowInternal {
			return nil, "", fmt.Errorf("%w: internal id %q not accepted", ErrBadIdentifier, canon)
		}
		pub, err := p.store.GetPublication(ctx, canon)
		return pub, OutcomeUnchanged, err
	}

	if err := p.checkBlacklist(ctx, canon, actor, opts.Override); err != nil {
		return nil, "", err
	}
	wanted, err := p.labels.Resolve(ctx, requested)
	if err != nil {
		return nil, "", err
	}

	var draft *types.Draft
	for attempt := 0; ; attempt++ {
		pub, outcome, err := p.attempt(ctx, kind, canon, wanted, actor, opts, &draft)
		if err == nil || attempt > 0 || !retryable(err) {
			return pub, outcome, err
		}
		p.logger.Debug().Err(err).Str("identifier", canon).Msg("retrying acquisition")
	}
}

func retryable(err error) bool {
	return errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrDuplicate)
}

// attempt runs the lookup, fetch, reconcile and save steps. The fetched
// draft is kept in *draft so a retry does not fetch again.
func (p *Pipeline) attempt(ctx context.Context, kind identifier.Kind, canon string, wanted types.Labels, actor string, opts Options, draft **types.Draft) (*types.Publication, Outcome, error) {
	existing, err := p.lookup(ctx, kind, canon)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return p.update(ctx, existing, nil, wanted, actor, opts)
	}

	if *draft == nil {
		d, err := p.fetch(ctx, kind, canon)
		if err != nil {
			return nil, "", err
		}
		if err := p.checkDraftBlacklist(ctx, d, canon, actor, opts.Override); err != nil {
			return nil, "", err
		}
		*draft = d
	}
	d := *draft

	other, err := p.reconcile(ctx, d)
	if err != nil {
		return nil, "", err
	}
	if other != nil {
		pub, _, err := p.update(ctx, other, d, wanted, actor, opts)
		return pub, OutcomeReconciled, err
	}

	pub := &types.Publication{
		Draft:    *d,
		Labels:   wanted.Clone(),
		Verified: opts.Verify,
	}
	if _, err := p.store.SavePublication(ctx, pub, actor); err != nil {
		return nil, "", err
	}
	return pub, OutcomeCreated, nil
}

// lookup returns the publication holding canon as its PMID or DOI, or nil.
func (p *Pipeline) lookup(ctx context.Context, kind identifier.Kind, canon string) (*types.Publication, error) {
	var pub *types.Publication
	var err error
	if kind == identifier.KindPMID {
		pub, err = p.store.GetByPMID(ctx, canon)
	} else {
		pub, err = p.store.GetByDOI(ctx, canon)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return pub, err
}

func (p *Pipeline) fetch(ctx context.Context, kind identifier.Kind, canon string) (*types.Draft, error) {
	src := p.crossref
	if kind == identifier.KindPMID {
		src = p.pubmed
	}
	start := time.Now()
	d, err := src.Fetch(ctx, canon)
	ev := p.logger.Debug()
	if err != nil {
		ev = p.logger.Warn().Err(err)
	}
	ev.Str("source", src.Name()).Str("identifier", canon).Dur("elapsed", time.Since(start)).Msg("fetched draft")
	if err != nil {
		return nil, err
	}
	if d.PMID == "" && d.DOI == "" {
		return nil, fmt.Errorf("%w: %s returned no identifier for %s", bibsource.ErrMalformed, src.Name(), canon)
	}
	return d, nil
}

// reconcile returns the stored publication holding the draft's DOI or
// PMID, or nil.
func (p *Pipeline) reconcile(ctx context.Context, d *types.Draft) (*types.Publication, error) {
	if d.DOI != "" {
		other, err := p.lookup(ctx, identifier.KindDOI, d.DOI)
		if other != nil || err != nil {
			return other, err
		}
	}
	if d.PMID != "" {
		return p.lookup(ctx, identifier.KindPMID, d.PMID)
	}
	return nil, nil
}

// update merges labels, the verified flag and, when d is set, the
// identifiers and xrefs missing from pub, then saves it.
func (p *Pipeline) update(ctx context.Context, pub *types.Publication, d *types.Draft, wanted types.Labels, actor string, opts Options) (*types.Publication, Outcome, error) {
	if pub.Labels == nil {
		pub.Labels = types.Labels{}
	}
	labels.Combine(pub.Labels, wanted, p.labels.Qualifiers())
	if opts.Verify {
		pub.Verified = true
	}
	if d != nil {
		backfill(pub, d)
	}
	written, err := p.store.SavePublication(ctx, pub, actor)
	if err != nil {
		return nil, "", err
	}
	if written {
		return pub, OutcomeUpdated, nil
	}
	return pub, OutcomeUnchanged, nil
}

func backfill(pub *types.Publication, d *types.Draft) {
	if pub.PMID == "" {
		pub.PMID = d.PMID
	}
	if pub.DOI == "" {
		pub.DOI = d.DOI
	}
	for _, x := range d.Xrefs {
		if !pub.HasXref(x) {
			pub.Xrefs = append(pub.Xrefs, x)
		}
	}
}

// checkBlacklist fails when canon is blacklisted, unless override is set
// in which case the entry is removed.
func (p *Pipeline) checkBlacklist(ctx context.Context, canon, actor string, override bool) error {
	entry, err := p.store.GetBlacklist(ctx, canon)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !override {
		return fmt.Errorf("%w: %s", ErrBlacklisted, canon)
	}
	if err := p.store.DeleteBlacklist(ctx, entry, actor); err != nil {
		return fmt.Errorf("removing blacklist entry for %s: %w", canon, err)
	}
	p.logger.Info().Str("identifier", canon).Str("actor", actor).Msg("removed blacklist entry")
	return nil
}

// checkDraftBlacklist applies checkBlacklist to the identifiers the draft
// carries besides the one it was fetched by.
func (p *Pipeline) checkDraftBlacklist(ctx context.Context, d *types.Draft, canon, actor string, override bool) error {
	for _, id := range []string{d.PMID, d.DOI} {
		if id == "" || id == canon {
			continue
		}
		if err := p.checkBlacklist(ctx, id, actor, override); err != nil {
			return err
		}
	}
	return nil
}
