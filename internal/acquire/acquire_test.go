// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/publications/internal/bibsource"
	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/internal/labels"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

const (
	caller = "curator@example.org"
	admin  = "admin@example.org"
)

var qualifiers = types.Qualifiers{"Service", "Technology development", "Collaborative"}

// fakeSource serves drafts from a map and counts calls.
type fakeSource struct {
	name   string
	mu     sync.Mutex
	drafts map[string]types.Draft
	errs   map[string]error
	calls  []string
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, drafts: map[string]types.Draft{}, errs: map[string]error{}}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, id string) (*types.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return nil, &bibsource.UpstreamError{Source: f.name, ID: id, Err: err}
	}
	d, ok := f.drafts[id]
	if !ok {
		return nil, &bibsource.UpstreamError{Source: f.name, ID: id, StatusCode: 404, Err: bibsource.ErrNotFound}
	}
	return &d, nil
}

type fixture struct {
	ctx      context.Context
	store    *store.Store
	labels   *labels.Coordinator
	pubmed   *fakeSource
	crossref *fakeSource
	pipeline *Pipeline
	pauses   []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.New(docstore.NewMemory(store.Indexes()...))
	f := &fixture{
		ctx:      context.Background(),
		store:    s,
		labels:   labels.New(s, qualifiers),
		pubmed:   newFakeSource("pubmed"),
		crossref: newFakeSource("crossref"),
	}
	cfg := types.AcquisitionConfig{FetchedLimit: 3, BulkPause: 2 * time.Second}
	f.pipeline = New(s, f.labels, f.pubmed, f.crossref, cfg, WithSleep(func(ctx context.Context, d time.Duration) error {
		f.pauses = append(f.pauses, d)
		return ctx.Err()
	}))

	f.pubmed.drafts["8142349"] = types.Draft{
		Title:     "Lysosomal storage",
		Authors:   []types.Author{{Family: "Smith", FamilyNormalized: "smith", Initials: "J", InitialsNormalized: "j"}},
		Published: "1994-03-00",
		PMID:      "8142349",
	}
	f.pubmed.drafts["26791236"] = types.Draft{
		Title: "Cell atlas",
		PMID:  "26791236",
		DOI:   "10.1016/j.cell.2015.12.018",
		Xrefs: []types.Xref{{DB: "PMC", Key: "PMC4000"}},
	}
	f.crossref.drafts["10.1016/j.cell.2015.12.018"] = types.Draft{
		Title: "Cell atlas",
		DOI:   "10.1016/j.cell.2015.12.018",
	}
	return f
}

func (f *fixture) countPublications(t *testing.T) int {
	t.Helper()
	all, err := f.store.AllPublications(f.ctx)
	require.NoError(t, err)
	return len(all)
}

func TestFreshPMIDAcquisition(t *testing.T) {
	f := newFixture(t)

	pub, err := f.pipeline.Acquire(f.ctx, "pmid:8142349", nil, caller, Options{Verify: true})
	require.NoError(t, err)
	assert.Equal(t, "8142349", pub.PMID)
	assert.NotEmpty(t, pub.Title)
	assert.Equal(t, caller, pub.Owner)
	assert.True(t, pub.Verified)
	assert.Equal(t, pub.Created, pub.Modified)

	assert.Equal(t, 1, f.countPublications(t))
	logs, err := f.store.LogsForDoc(f.ctx, pub.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestConfiguredPrefixesResolveEverywhere(t *testing.T) {
	ctx := context.Background()
	prefixes := []string{"medline:"}
	s := store.New(docstore.NewMemory(store.Indexes()...), store.WithNormalizer(identifier.New(prefixes)))
	pubmed := newFakeSource("pubmed")
	pubmed.drafts["8142349"] = types.Draft{Title: "Lysosomal storage", PMID: "8142349"}
	p := New(s, labels.New(s, qualifiers), pubmed, newFakeSource("crossref"),
		types.AcquisitionConfig{IdentifierPrefixes: prefixes})

	pub, err := p.Acquire(ctx, "medline:8142349", nil, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, "8142349", pub.PMID)

	found, err := s.Lookup(ctx, "medline:8142349")
	require.NoError(t, err)
	assert.Equal(t, pub.ID, found.ID)

	_, err = s.Lookup(ctx, "pmid:8142349")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.SaveBlacklist(ctx, &types.BlacklistEntry{PMID: "99"}, admin)
	require.NoError(t, err)
	entry, err := s.GetBlacklist(ctx, "medline:99")
	require.NoError(t, err)
	assert.Equal(t, "99", entry.PMID)
}

func TestDuplicateAcquisitionIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.pipeline.Acquire(f.ctx, "pmid:8142349", nil, caller, Options{Verify: true})
	require.NoError(t, err)
	second, outcome, err := f.pipeline.AcquireOutcome(f.ctx, "pmid:8142349", nil, caller, Options{Verify: true})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, 1, f.countPublications(t))
	assert.Equal(t, []string{"8142349"}, f.pubmed.calls)

	logs, err := f.store.LogsForDoc(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestAcquireByPMIDReconcilesExistingDOI(t *testing.T) {
	f := newFixture(t)

	existing := &types.Publication{Draft: types.Draft{Title: "Cell atlas", DOI: "10.1016/j.cell.2015.12.018"}}
	_, err := f.store.SavePublication(f.ctx, existing, admin)
	require.NoError(t, err)

	pub, outcome, err := f.pipeline.AcquireOutcome(f.ctx, "pmid:26791236", nil, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReconciled, outcome)
	assert.Equal(t, existing.ID, pub.ID)
	assert.Equal(t, "26791236", pub.PMID)
	assert.Equal(t, "10.1016/j.cell.2015.12.018", pub.DOI)
	assert.Equal(t, []types.Xref{{DB: "PMC", Key: "PMC4000"}}, pub.Xrefs)
	assert.Equal(t, admin, pub.Owner)
	assert.Equal(t, 1, f.countPublications(t))

	again, err := f.pipeline.Acquire(f.ctx, "10.1016/J.CELL.2015.12.018", nil, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)
	assert.Empty(t, f.crossref.calls)
}

func TestAcquireByDOIReconcilesExistingPMID(t *testing.T) {
	f := newFixture(t)
	f.crossref.drafts["10.1/x"] = types.Draft{Title: "X", DOI: "10.1/x"}

	existing := &types.Publication{Draft: types.Draft{Title: "X", PMID: "99"}}
	_, err := f.store.SavePublication(f.ctx, existing, admin)
	require.NoError(t, err)

	pub, err := f.pipeline.Acquire(f.ctx, "doi:10.1/x", nil, caller, Options{})
	require.NoError(t, err)
	// Crossref never reports a PMID, so nothing links the two records.
	assert.NotEqual(t, existing.ID, pub.ID)
	assert.Equal(t, 2, f.countPublications(t))
}

func TestBlacklistEnforcement(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.SaveBlacklist(f.ctx, &types.BlacklistEntry{PMID: "8142349", Title: "Lysosomal storage"}, admin)
	require.NoError(t, err)

	_, err = f.pipeline.Acquire(f.ctx, "8142349", nil, caller, Options{})
	assert.ErrorIs(t, err, ErrBlacklisted)
	assert.Equal(t, KindBlacklisted, KindOf(err))
	assert.Empty(t, f.pubmed.calls)

	pub, err := f.pipeline.Acquire(f.ctx, "8142349", nil, caller, Options{Override: true})
	require.NoError(t, err)
	assert.Equal(t, "8142349", pub.PMID)

	_, err = f.store.GetBlacklist(f.ctx, "8142349")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlacklistedDOIFromDraft(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.SaveBlacklist(f.ctx, &types.BlacklistEntry{DOI: "10.1016/j.cell.2015.12.018", Title: "Cell atlas"}, admin)
	require.NoError(t, err)

	_, err = f.pipeline.Acquire(f.ctx, "26791236", nil, caller, Options{})
	assert.ErrorIs(t, err, ErrBlacklisted)
	assert.Equal(t, 0, f.countPublications(t))

	_, err = f.pipeline.Acquire(f.ctx, "26791236", nil, caller, Options{Override: true})
	require.NoError(t, err)
	assert.Equal(t, 1, f.countPublications(t))
}

func TestAcquireAppliesLabels(t *testing.T) {
	f := newFixture(t)
	for _, l := range []string{"Gene Therapy", "Genomics"} {
		_, err := f.labels.Create(f.ctx, l, admin)
		require.NoError(t, err)
	}

	pub, err := f.pipeline.Acquire(f.ctx, "8142349", types.Labels{
		"gene therapy": "Service",
		"genomics":     "bogus",
		"Unknown":      "Service",
	}, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.Labels{"Gene Therapy": "Service", "Genomics": ""}, pub.Labels)

	pub, err = f.pipeline.Acquire(f.ctx, "8142349", types.Labels{
		"Gene Therapy": "",
		"Genomics":     "Collaborative",
	}, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.Labels{"Gene Therapy": "Service", "Genomics": "Collaborative"}, pub.Labels)

	again, err := f.pipeline.Acquire(f.ctx, "8142349", types.Labels{"Genomics": "Collaborative"}, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, pub.Rev, again.Rev)
}

func TestAcquireErrorKinds(t *testing.T) {
	f := newFixture(t)
	f.pubmed.errs["500"] = bibsource.ErrTransient
	f.pubmed.errs["501"] = bibsource.ErrMalformed
	f.crossref.errs["10.1/slow"] = bibsource.ErrTimeout

	tests := []struct {
		input string
		want  Kind
	}{
		{"not an identifier", KindBadIdentifier},
		{"0123", KindBadIdentifier},
		{"404", KindUpstreamNotFound},
		{"500", KindUpstreamTransient},
		{"501", KindUpstreamMalformed},
		{"10.1/slow", KindUpstreamTimeout},
		{"0123456789abcdef0123456789abcdef", KindBadIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := f.pipeline.Acquire(f.ctx, tt.input, nil, caller, Options{})
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err), err.Error())
		})
	}
	assert.Equal(t, 0, f.countPublications(t))
}

func TestAcquireInternal(t *testing.T) {
	f := newFixture(t)
	pub, err := f.pipeline.Acquire(f.ctx, "8142349", nil, caller, Options{})
	require.NoError(t, err)

	got, err := f.pipeline.Acquire(f.ctx, pub.ID, nil, caller, Options{AllowInternal: true})
	require.NoError(t, err)
	assert.Equal(t, pub.ID, got.ID)

	_, err = f.pipeline.Acquire(f.ctx, "ffffffffffffffffffffffffffffffff", nil, caller, Options{AllowInternal: true})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAcquireConcurrentWriterReconciles(t *testing.T) {
	f := newFixture(t)
	racer := &types.Publication{Draft: types.Draft{Title: "Lysosomal storage", PMID: "8142349"}}
	f.pipeline.pubmed = &racingSource{Source: f.pubmed, before: func() {
		_, err := f.store.SavePublication(f.ctx, racer, admin)
		require.NoError(t, err)
	}}

	pub, outcome, err := f.pipeline.AcquireOutcome(f.ctx, "8142349", nil, caller, Options{Verify: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReconciled, outcome)
	assert.Equal(t, racer.ID, pub.ID)
	assert.True(t, pub.Verified)
	assert.Equal(t, 1, f.countPublications(t))
}

// racingSource lets another writer store a publication right after the fetch.
type racingSource struct {
	bibsource.Source
	once   sync.Once
	before func()
}

func (r *racingSource) Fetch(ctx context.Context, id string) (*types.Draft, error) {
	d, err := r.Source.Fetch(ctx, id)
	r.once.Do(r.before)
	return d, err
}

// racingDocs stores a competing publication just before the first
// publication write it sees.
type racingDocs struct {
	docstore.Store
	raced bool
	race  func()
}

func (r *racingDocs) Put(ctx context.Context, doc docstore.Document) (string, error) {
	if doc.Kind == types.KindPublication && !r.raced {
		r.raced = true
		r.race()
	}
	return r.Store.Put(ctx, doc)
}

func TestAcquireRetriesOnDuplicate(t *testing.T) {
	f := newFixture(t)
	docs := &racingDocs{Store: docstore.NewMemory(store.Indexes()...)}
	s := store.New(docs)
	racer := &types.Publication{Draft: types.Draft{Title: "Lysosomal storage", PMID: "8142349"}}
	docs.race = func() {
		_, err := s.SavePublication(f.ctx, racer, admin)
		require.NoError(t, err)
	}
	p := New(s, labels.New(s, qualifiers), f.pubmed, f.crossref, types.AcquisitionConfig{})

	pub, outcome, err := p.AcquireOutcome(f.ctx, "8142349", nil, caller, Options{Verify: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, racer.ID, pub.ID)
	assert.True(t, pub.Verified)

	all, err := s.AllPublications(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, []string{"8142349"}, f.pubmed.calls)
}

func TestAcquireMany(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.AcquireMany(f.ctx, []string{"8142349", "bogus", "26791236"}, nil, caller, Options{})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bogus", result.Failed[0].Identifier)
	assert.Equal(t, KindBadIdentifier, result.Failed[0].Kind)
	assert.Equal(t, 3, result.Total())
	assert.True(t, result.HasFailures())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.pauses)
	assert.Equal(t, 2, f.countPublications(t))
}

func TestAcquireManyLimit(t *testing.T) {
	f := newFixture(t)
	inputs := []string{"8142349", "26791236", "1", "2", "3"}

	result, err := f.pipeline.AcquireMany(f.ctx, inputs, nil, caller, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"8142349", "26791236", "1"}, f.pubmed.calls)
	require.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 3)
	assert.Equal(t, KindUpstreamNotFound, result.Failed[0].Kind)
	for _, fail := range result.Failed[1:] {
		assert.Equal(t, KindLimitExceeded, fail.Kind, fail.Identifier)
		assert.ErrorIs(t, fail.Err, ErrLimitExceeded)
	}
	assert.Equal(t, "2", result.Failed[1].Identifier)
	assert.Equal(t, "3", result.Failed[2].Identifier)
	assert.Equal(t, len(inputs), result.Total())
	assert.Len(t, f.pauses, 2)
}

func TestAcquireChunks(t *testing.T) {
	f := newFixture(t)
	inputs := []string{"8142349", "bogus", "26791236", "8142349", "1"}

	var chunks []int
	result, err := f.pipeline.AcquireChunks(f.ctx, inputs, nil, caller, Options{}, func(r BatchResult) {
		chunks = append(chunks, r.Total())
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, chunks)
	assert.Equal(t, 5, result.Total())
	assert.Len(t, result.Succeeded, 3)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, KindBadIdentifier, result.Failed[0].Kind)
	assert.Equal(t, KindUpstreamNotFound, result.Failed[1].Kind)
	// Two pauses inside each chunk of three, one inside the chunk of two,
	// and one between the chunks.
	assert.Len(t, f.pauses, 4)
	assert.Equal(t, 2, f.countPublications(t))
}

func TestAcquireChunksStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	pauses := 0
	f.pipeline.sleep = func(ctx context.Context, d time.Duration) error {
		pauses++
		if pauses == 3 {
			cancel()
		}
		return ctx.Err()
	}

	result, err := f.pipeline.AcquireChunks(ctx, []string{"8142349", "bogus", "26791236", "8142349"}, nil, caller, Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, result.Total())
	assert.Equal(t, []string{"8142349", "26791236"}, f.pubmed.calls)
}

func TestAcquireManyStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	f.pipeline.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	result, err := f.pipeline.AcquireMany(ctx, []string{"8142349", "26791236"}, nil, caller, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.Succeeded, 1)
	assert.Empty(t, result.Failed)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{fmt.Errorf("x: %w", ErrBadIdentifier), KindBadIdentifier},
		{fmt.Errorf("x: %w", store.ErrBlacklisted), KindBlacklisted},
		{&bibsource.UpstreamError{Err: bibsource.ErrRateLimited}, KindUpstreamTransient},
		{fmt.Errorf("x: %w", store.ErrConflict), KindStoreConflict},
		{fmt.Errorf("x: %w", store.ErrDuplicate), KindDuplicate},
		{fmt.Errorf("x: %w", store.ErrNotFound), KindNotFound},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), fmt.Sprint(tt.err))
	}
	assert.True(t, KindDuplicate.Retryable())
	assert.False(t, KindBlacklisted.Retryable())
	assert.Equal(t, "UpstreamTimeout", KindUpstreamTimeout.String())
}
