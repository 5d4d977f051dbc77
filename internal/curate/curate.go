// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curate implements the edits a curator makes to one
// publication: labels, notes, verification, researcher links, the edit
// lock, blacklisting and deletion.
package curate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/publications/internal/labels"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// Errors returned by the curator. ErrNoAuthor wraps store.ErrInvalid.
var (
	ErrLocked   = errors.New("publication is checked out by another account")
	ErrNoAuthor = fmt.Errorf("%w: no matching author", store.ErrInvalid)
)

// DefaultAcquirePeriod is the edit lock lifetime when none is configured.
const DefaultAcquirePeriod = 20 * time.Minute

// Curator edits publications.
type Curator struct {
	store   *store.Store
	labels  *labels.Coordinator
	period  time.Duration
	retries int
	logger  zerolog.Logger
}

// Option configures a Curator.
type Option func(*Curator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Curator) { c.logger = l }
}

// New returns a Curator whose edit locks last period.
func New(s *store.Store, coord *labels.Coordinator, period time.Duration, opts ...Option) *Curator {
	if period <= 0 {
		period = DefaultAcquirePeriod
	}
	c := &Curator{
		store:   s,
		labels:  coord,
		period:  period,
		retries: labels.DefaultRetries,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// edit loads the publication identified by input, applies mutate and
// saves it, reloading and reapplying after a conflict. mutate sees the
// fresh copy each time.
func (c *Curator) edit(ctx context.Context, input, actor string, mutate func(*types.Publication) error) (*types.Publication, error) {
	var err error
	for i := 0; i < c.retries; i++ {
		var p *types.Publication
		p, err = c.store.Lookup(ctx, input)
		if err != nil {
			return nil, err
		}
		if err = mutate(p); err != nil {
			return nil, err
		}
		if _, err = c.store.SavePublication(ctx, p, actor); err == nil {
			return p, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	return nil, err
}

// lockedBy returns the account holding an unexpired lock on p, or "".
func (c *Curator) lockedBy(p *types.Publication) string {
	if p.Acquired == nil {
		return ""
	}
	deadline, err := types.ParseTimestamp(p.Acquired.Deadline)
	if err != nil || !c.store.Now().Before(deadline) {
		return ""
	}
	return p.Acquired.Account
}

func (c *Curator) checkLock(p *types.Publication, actor string) error {
	if holder := c.lockedBy(p); holder != "" && holder != actor {
		return fmt.Errorf("%w: %s until %s", ErrLocked, holder, p.Acquired.Deadline)
	}
	return nil
}

// SetLabels replaces the labels of a publication by the requested ones
// that match existing Labels.
func (c *Curator) SetLabels(ctx context.Context, input string, requested types.Labels, actor string) (*types.Publication, error) {
	wanted, err := c.labels.Resolve(ctx, requested)
	if err != nil {
		return nil, err
	}
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		if err := c.checkLock(p, actor); err != nil {
			return err
		}
		p.Labels = wanted.Clone()
		return nil
	})
}

// SetNotes replaces the notes of a publication.
func (c *Curator) SetNotes(ctx context.Context, input, notes, actor string) (*types.Publication, error) {
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		if err := c.checkLock(p, actor); err != nil {
			return err
		}
		p.Notes = notes
		return nil
	})
}

// SetQC records a quality-control flag on a publication.
func (c *Curator) SetQC(ctx context.Context, input, aspect string, flag bool, actor string) (*types.Publication, error) {
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		if err := c.checkLock(p, actor); err != nil {
			return err
		}
		if p.QC == nil {
			p.QC = make(map[string]types.QCFlag)
		}
		p.QC[aspect] = types.QCFlag{Flag: flag, Date: c.store.Timestamp(), Account: actor}
		return nil
	})
}

// Verify marks a publication as verified.
func (c *Curator) Verify(ctx context.Context, input, actor string) (*types.Publication, error) {
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		p.Verified = true
		return nil
	})
}

// Checkout takes the edit lock on a publication for the acquire period.
// Taking a lock the actor already holds extends it.
func (c *Curator) Checkout(ctx context.Context, input, actor string) (*types.Publication, error) {
	p, err := c.edit(ctx, input, actor, func(p *types.Publication) error {
		if err := c.checkLock(p, actor); err != nil {
			return err
		}
		p.Acquired = &types.Acquired{
			Account:  actor,
			Deadline: types.Timestamp(c.store.Now().Add(c.period)),
		}
		return nil
	})
	if err == nil {
		c.logger.Info().Str("id", p.ID).Str("actor", actor).Str("deadline", p.Acquired.Deadline).Msg("checked out publication")
	}
	return p, err
}

// Release clears the edit lock. Only the holder may release an unexpired
// lock unless force is set.
func (c *Curator) Release(ctx context.Context, input, actor string, force bool) (*types.Publication, error) {
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		if !force {
			if err := c.checkLock(p, actor); err != nil {
				return err
			}
		}
		p.Acquired = nil
		return nil
	})
}

// Blacklist records the publication's identifiers in the blacklist and
// deletes it. Blacklisting a publication that no longer exists succeeds;
// one checked out by another account is refused.
func (c *Curator) Blacklist(ctx context.Context, input, actor string) (*types.BlacklistEntry, error) {
	p, err := c.store.Lookup(ctx, input)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := c.checkLock(p, actor); err != nil {
		return nil, err
	}
	if p.PMID == "" && p.DOI == "" {
		return nil, fmt.Errorf("%w: publication %s has no pmid or doi", store.ErrInvalid, p.ID)
	}

	entry, err := c.existingEntry(ctx, p)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = &types.BlacklistEntry{Title: p.Title}
	}
	if entry.PMID == "" {
		entry.PMID = p.PMID
	}
	if entry.DOI == "" {
		entry.DOI = p.DOI
	}
	if _, err := c.store.SaveBlacklist(ctx, entry, actor); err != nil {
		return nil, err
	}
	if err := c.store.DeletePublication(ctx, p, actor); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	c.logger.Info().Str("id", p.ID).Str("pmid", p.PMID).Str("doi", p.DOI).Str("actor", actor).Msg("blacklisted publication")
	return entry, nil
}

func (c *Curator) existingEntry(ctx context.Context, p *types.Publication) (*types.BlacklistEntry, error) {
	for _, id := range []string{p.PMID, p.DOI} {
		if id == "" {
			continue
		}
		entry, err := c.store.GetBlacklist(ctx, id)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// Delete removes a publication and its log entries. A publication checked
// out by another account is refused.
func (c *Curator) Delete(ctx context.Context, input, actor string) error {
	p, err := c.store.Lookup(ctx, input)
	if err != nil {
		return err
	}
	if err := c.checkLock(p, actor); err != nil {
		return err
	}
	return c.store.DeletePublication(ctx, p, actor)
}

// LinkResearcher links r to one author of a publication: the first
// unlinked author carrying r's ORCID, or else the first unlinked author
// whose name r matches. A publication already linked to r is unchanged.
func (c *Curator) LinkResearcher(ctx context.Context, input string, r *types.Researcher, actor string) (*types.Publication, error) {
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		if err := c.checkLock(p, actor); err != nil {
			return err
		}
		for _, a := range p.Authors {
			if a.Researcher == r.ID {
				return nil
			}
		}
		i := matchAuthor(p.Authors, r)
		if i < 0 {
			return fmt.Errorf("%w: %s in publication %s", ErrNoAuthor, r.Name(), p.ID)
		}
		p.Authors[i].Researcher = r.ID
		return nil
	})
}

// UnlinkResearcher removes every link from the authors of a publication
// to the researcher id.
func (c *Curator) UnlinkResearcher(ctx context.Context, input, id, actor string) (*types.Publication, error) {
	return c.edit(ctx, input, actor, func(p *types.Publication) error {
		if err := c.checkLock(p, actor); err != nil {
			return err
		}
		for i := range p.Authors {
			if p.Authors[i].Researcher == id {
				p.Authors[i].Researcher = ""
			}
		}
		return nil
	})
}

func matchAuthor(authors []types.Author, r *types.Researcher) int {
	if r.ORCID != "" {
		for i, a := range authors {
			if a.Researcher == "" && a.ORCID == r.ORCID {
				return i
			}
		}
	}
	for i, a := range authors {
		if a.Researcher == "" && r.Matches(a) {
			return i
		}
	}
	return -1
}
