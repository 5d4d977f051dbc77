// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/pkg/types"
)

const curator = "curator@example.org"

// stepClock advances one millisecond per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func counterIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%032x", n)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(docstore.NewMemory(Indexes()...), WithClock(clock.Now), WithIDGen(counterIDs()))
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePublication(pmid, doi string) *types.Publication {
	return &types.Publication{Draft: types.Draft{
		Title: "Dynamics of protein complexes",
		Authors: []types.Author{
			{Family: "Öberg", FamilyNormalized: "oberg", Given: "Anna", GivenNormalized: "anna", Initials: "A", InitialsNormalized: "a"},
		},
		Journal:   types.JournalRef{Title: "Cell", ISSN: "0092-8674"},
		Published: "2016-01-00",
		PMID:      pmid,
		DOI:       doi,
	}}
}

func TestSavePublicationNew(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("8142349", "")
	written, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Len(t, p.ID, 32)
	assert.NotEmpty(t, p.Rev)
	assert.Equal(t, types.KindPublication, p.Kind)
	assert.Equal(t, curator, p.Owner)
	assert.NotEmpty(t, p.Created)
	assert.NotEmpty(t, p.Modified)

	got, err := s.GetByPMID(ctx, "8142349")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Rev, got.Rev)
	assert.Equal(t, "Dynamics of protein complexes", got.Title)

	logs, err := s.LogsForDoc(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, curator, logs[0].Account)
	assert.Equal(t, "8142349", logs[0].Changed["pmid"])
	assert.NotContains(t, logs[0].Changed, "modified")
}

func TestSaveNoOpWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)
	rev, modified := p.Rev, p.Modified

	written, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, rev, p.Rev)
	assert.Equal(t, modified, p.Modified)

	logs, err := s.LogsForDoc(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestSaveUpdateLogsShallowDiff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	p.Notes = "checked"
	p.Labels = types.Labels{"Genomics": ""}
	written, err := s.SavePublication(ctx, p, "admin@example.org")
	require.NoError(t, err)
	assert.True(t, written)

	logs, err := s.LogsForDoc(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, map[string]any{
		"notes":  "checked",
		"labels": map[string]any{"Genomics": nil},
	}, logs[1].Changed)
	assert.Equal(t, "admin@example.org", logs[1].Account)
}

func TestSaveStaleRevisionConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	stale, err := s.GetPublication(ctx, p.ID)
	require.NoError(t, err)

	p.Notes = "first"
	_, err = s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	stale.Notes = "second"
	_, err = s.SavePublication(ctx, stale, curator)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetPublication(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Notes)
}

func TestSaveDeletedEntityConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)
	held := *p
	require.NoError(t, s.DeletePublication(ctx, p, curator))

	held.Notes = "late"
	_, err = s.SavePublication(ctx, &held, curator)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestIdentifierUniqueness(t *testing.T) {
	tests := []struct {
		name        string
		first, next *types.Publication
	}{
		{"pmid", samplePublication("42", ""), samplePublication("42", "10.1/b")},
		{"doi", samplePublication("", "10.1/a"), samplePublication("7", "10.1/a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			_, err := s.SavePublication(ctx, tt.first, curator)
			require.NoError(t, err)
			_, err = s.SavePublication(ctx, tt.next, curator)
			assert.ErrorIs(t, err, ErrDuplicate)

			all, err := s.AllPublications(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestSaveRefusesBlacklisted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveBlacklist(ctx, &types.BlacklistEntry{DOI: "10.1/bad", Title: "Bad"}, "admin@example.org")
	require.NoError(t, err)

	_, err = s.SavePublication(ctx, samplePublication("5", "10.1/bad"), curator)
	assert.ErrorIs(t, err, ErrBlacklisted)

	entry, err := s.GetBlacklist(ctx, "https://doi.org/10.1/BAD")
	require.NoError(t, err)
	assert.Equal(t, "Bad", entry.Title)

	_, err = s.GetBlacklist(ctx, "pmid:5")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePublicationRemovesLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)
	p.Notes = "x"
	_, err = s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	require.NoError(t, s.DeletePublication(ctx, p, "admin@example.org"))

	_, err = s.GetPublication(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetByPMID(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	logs, err := s.LogsForDoc(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, map[string]any{"_deleted": true}, logs[0].Changed)
}

func TestLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("26791236", "10.1016/j.cell.2015.12.018")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	for _, input := range []string{
		p.ID,
		"26791236",
		"PMID:26791236",
		"10.1016/J.CELL.2015.12.018",
		"https://doi.org/10.1016/j.cell.2015.12.018",
	} {
		got, err := s.Lookup(ctx, input)
		require.NoError(t, err, input)
		assert.Equal(t, p.ID, got.ID, input)
	}

	_, err = s.Lookup(ctx, "not an identifier")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountEmailAndRedaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &types.Account{Email: "  Curator@Example.ORG ", Role: types.RoleCurator, Password: "hash", APIKey: "k1"}
	_, err := s.SaveAccount(ctx, a, "admin@example.org")
	require.NoError(t, err)
	assert.Equal(t, "curator@example.org", a.Email)

	got, err := s.GetAccount(ctx, "CURATOR@example.org")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = s.GetAccountByAPIKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	logs, err := s.LogsForDoc(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, RedactionMarker, logs[0].Changed["password"])
	assert.Equal(t, RedactionMarker, logs[0].Changed["api_key"])

	_, err = s.SaveAccount(ctx, &types.Account{Email: "curator@example.org", Role: types.RoleCurator}, "admin@example.org")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.SaveAccount(ctx, &types.Account{Email: "x@example.org", Role: "owner"}, "admin@example.org")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLabelNormalizedUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveLabel(ctx, &types.Label{Value: "Gene  Therapy"}, "admin@example.org")
	require.NoError(t, err)
	_, err = s.SaveLabel(ctx, &types.Label{Value: "gene therapy"}, "admin@example.org")
	assert.ErrorIs(t, err, ErrDuplicate)

	l, err := s.GetLabel(ctx, "GENE THERAPY")
	require.NoError(t, err)
	assert.Equal(t, "Gene Therapy", l.Value)
	assert.Equal(t, "gene therapy", l.NormalizedValue)

	found, err := s.SearchLabels(ctx, "ther")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, l.ID, found[0].ID)
}

func TestJournalFixUpAndInUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	j, err := s.GetJournal(ctx, "Cell")
	require.NoError(t, err)
	assert.Equal(t, "0092-8674", j.ISSN)

	err = s.DeleteJournal(ctx, j, "admin@example.org")
	assert.ErrorIs(t, err, ErrInUse)

	require.NoError(t, s.DeletePublication(ctx, p, curator))
	require.NoError(t, s.DeleteJournal(ctx, j, "admin@example.org"))
}

func TestPublicationIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePublication("1", "")
	p.Verified = true
	p.Epublished = "2015-12-20"
	p.Labels = types.Labels{"Gene Therapy": "Service"}
	p.Xrefs = []types.Xref{{DB: "PMC", Key: "PMC123"}}
	_, err := s.SavePublication(ctx, p, curator)
	require.NoError(t, err)

	q := samplePublication("", "10.1/x")
	q.Published = "2016-05-00"
	_, err = s.SavePublication(ctx, q, curator)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query docstore.Query
		want  []string
	}{
		{"author family", docstore.Exact(IndexPublicationAuthor, "oberg"), []string{p.ID, q.ID}},
		{"author initials", docstore.Exact(IndexPublicationAuthor, "oberg a"), []string{p.ID, q.ID}},
		{"title word", docstore.Exact(IndexPublicationTitle, "protein"), []string{p.ID, q.ID}},
		{"title stop word", docstore.Exact(IndexPublicationTitle, "of"), nil},
		{"label", docstore.Exact(IndexPublicationLabel, "gene therapy"), []string{p.ID}},
		{"year", docstore.Exact(IndexPublicationYear, "2016"), []string{p.ID, q.ID}},
		{"no pmid", docstore.All(IndexPublicationNoPMID), []string{q.ID}},
		{"no doi", docstore.All(IndexPublicationNoDOI), []string{p.ID}},
		{"first published", docstore.Prefix(IndexPublicationFirstPublished, "2015"), []string{p.ID}},
		{"unverified", docstore.All(IndexPublicationUnverified), []string{q.ID}},
		{"xref key", docstore.Exact(IndexPublicationXref, "pmc123"), []string{p.ID}},
		{"xref db key", docstore.Exact(IndexPublicationXref, "pmc:pmc123"), []string{p.ID}},
		{"issn", docstore.Exact(IndexPublicationISSN, "0092-8674"), []string{p.ID, q.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryPublications(ctx, tt.query)
			require.NoError(t, err)
			var ids []string
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestListsAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := samplePublication("1", "")
	older.Published = "2015-02-00"
	newer := samplePublication("2", "")
	_, err := s.SavePublication(ctx, older, curator)
	require.NoError(t, err)
	_, err = s.SavePublication(ctx, newer, curator)
	require.NoError(t, err)

	byYear, err := s.PublicationsByYear(ctx, "2016")
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, newer.ID, byYear[0].ID)

	recent, err := s.RecentPublications(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, newer.ID, recent[0].ID)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[types.KindPublication])
	assert.Equal(t, 1, counts[types.KindJournal])
	assert.Equal(t, 3, counts[types.KindLog])

	recentLogs, err := s.RecentLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recentLogs, 2)
	assert.GreaterOrEqual(t, recentLogs[0].Modified, recentLogs[1].Modified)
}

func TestResearcherNormalizationAndORCID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &types.Researcher{
		Family:       "  Öberg ",
		Given:        "Anna  Karin",
		ORCID:        "0000-0002-1825-0097",
		Affiliations: []string{" SciLifeLab ", "", "KTH"},
	}
	_, err := s.SaveResearcher(ctx, r, "admin@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Öberg", r.Family)
	assert.Equal(t, "oberg", r.FamilyNormalized)
	assert.Equal(t, "Anna Karin", r.Given)
	assert.Equal(t, "anna karin", r.GivenNormalized)
	assert.Equal(t, "AK", r.Initials)
	assert.Equal(t, "ak", r.InitialsNormalized)
	assert.Equal(t, []string{"SciLifeLab", "KTH"}, r.Affiliations)
	assert.Equal(t, "Öberg AK", r.Name())

	for _, input := range []string{r.ID, "0000-0002-1825-0097", " 0000-0002-1825-0097 "} {
		got, err := s.LookupResearcher(ctx, input)
		require.NoError(t, err, input)
		assert.Equal(t, r.ID, got.ID, input)
	}
	byFamily, err := s.ResearchersByFamily(ctx, "OBERG")
	require.NoError(t, err)
	require.Len(t, byFamily, 1)

	_, err = s.SaveResearcher(ctx, &types.Researcher{Family: "Other", ORCID: "0000-0002-1825-0097"}, "admin@example.org")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.SaveResearcher(ctx, &types.Researcher{Family: " "}, "admin@example.org")
	assert.ErrorIs(t, err, ErrInvalid)

	noORCID := &types.Researcher{Family: "Andersson", Initials: "B E"}
	_, err = s.SaveResearcher(ctx, noORCID, "admin@example.org")
	require.NoError(t, err)
	assert.Equal(t, "BE", noORCID.Initials)
	_, err = s.SaveResearcher(ctx, &types.Researcher{Family: "Berg"}, "admin@example.org")
	require.NoError(t, err, "researchers without ORCID do not collide")

	all, err := s.AllResearchers(ctx)
	require.NoError(t, err)
	var names []string
	for _, a := range all {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"Andersson BE", "Berg", "Öberg AK"}, names)

	_, err = s.LookupResearcher(ctx, "0000-0000-0000-0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResearcherLinksGuardDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &types.Researcher{Family: "Öberg", Given: "Anna"}
	_, err := s.SaveResearcher(ctx, r, "admin@example.org")
	require.NoError(t, err)

	linked := samplePublication("1", "")
	linked.Published = "2015-02-00"
	linked.Authors[0].Researcher = r.ID
	_, err = s.SavePublication(ctx, linked, curator)
	require.NoError(t, err)
	candidate := samplePublication("2", "")
	_, err = s.SavePublication(ctx, candidate, curator)
	require.NoError(t, err)

	pubs, err := s.ResearcherPublications(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, linked.ID, pubs[0].ID)

	candidates, err := s.ResearcherCandidates(ctx, r)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, candidate.ID, candidates[0].ID, "newest first")

	err = s.DeleteResearcher(ctx, r, "admin@example.org")
	assert.ErrorIs(t, err, ErrInUse)

	linked.Authors[0].Researcher = ""
	_, err = s.SavePublication(ctx, linked, curator)
	require.NoError(t, err)
	require.NoError(t, s.DeleteResearcher(ctx, r, "admin@example.org"))
	_, err = s.GetResearcher(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[types.KindResearcher])
}
