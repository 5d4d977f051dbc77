// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"strings"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/pkg/types"
)

// Index names.
const (
	IndexPublicationPMID           = "publication/pmid"
	IndexPublicationDOI            = "publication/doi"
	IndexPublicationAuthor         = "publication/author"
	IndexPublicationTitle          = "publication/title"
	IndexPublicationLabel          = "publication/label"
	IndexPublicationISSN           = "publication/issn"
	IndexPublicationJournal        = "publication/journal"
	IndexPublicationYear           = "publication/year"
	IndexPublicationPublished      = "publication/published"
	IndexPublicationEpublished     = "publication/epublished"
	IndexPublicationModified       = "publication/modified"
	IndexPublicationNoPMID         = "publication/no_pmid"
	IndexPublicationNoDOI          = "publication/no_doi"
	IndexPublicationFirstPublished = "publication/first_published"
	IndexPublicationXref           = "publication/xref"
	IndexPublicationNotes          = "publication/notes"
	IndexPublicationUnverified     = "publication/unverified"
	IndexPublicationAcquired       = "publication/acquired"
	IndexPublicationResearcher     = "publication/researcher"

	IndexAccountEmail  = "account/email"
	IndexAccountAPIKey = "account/api_key"
	IndexAccountLabel  = "account/label"
	IndexAccountRole   = "account/role"

	IndexLabelValue           = "label/value"
	IndexLabelNormalizedValue = "label/normalized_value"
	IndexLabelParts           = "label/label_parts"

	IndexJournalTitle = "journal/title"
	IndexJournalISSN  = "journal/issn"

	IndexResearcherORCID  = "researcher/orcid"
	IndexResearcherFamily = "researcher/family"
	IndexResearcherName   = "researcher/name"

	IndexBlacklistPMID = "blacklist/pmid"
	IndexBlacklistDOI  = "blacklist/doi"

	IndexLogDoc      = "log/doc"
	IndexLogAccount  = "log/account"
	IndexLogModified = "log/modified"
)

func index[T any](name, kind string, unique bool, fn func(*T) []string) docstore.Index {
	return docstore.Index{
		Name:   name,
		Kind:   kind,
		Unique: unique,
		Emit: func(body []byte) []string {
			var v T
			if err := json.Unmarshal(body, &v); err != nil {
				return nil
			}
			return fn(&v)
		},
	}
}

func one(s string) []string { return []string{s} }

func publication(name string, unique bool, fn func(*types.Publication) []string) docstore.Index {
	return index(name, types.KindPublication, unique, fn)
}

// Indexes returns the definitions of every secondary index. Backends are
// opened with these.
func Indexes() []docstore.Index {
	return []docstore.Index{
		publication(IndexPublicationPMID, true, func(p *types.Publication) []string { return one(p.PMID) }),
		publication(IndexPublicationDOI, true, func(p *types.Publication) []string { return one(p.DOI) }),
		publication(IndexPublicationAuthor, false, authorKeys),
		publication(IndexPublicationTitle, false, func(p *types.Publication) []string {
			return normalize.Words(p.Title)
		}),
		publication(IndexPublicationLabel, false, func(p *types.Publication) []string {
			var keys []string
			for label := range p.Labels {
				keys = append(keys, normalize.Value(label))
			}
			return keys
		}),
		publication(IndexPublicationISSN, false, func(p *types.Publication) []string {
			return []string{p.Journal.ISSN, p.Journal.ISSNL}
		}),
		publication(IndexPublicationJournal, false, func(p *types.Publication) []string {
			return one(normalize.Value(p.Journal.Title))
		}),
		publication(IndexPublicationYear, false, func(p *types.Publication) []string { return one(p.Year()) }),
		publication(IndexPublicationPublished, false, func(p *types.Publication) []string { return one(p.Published) }),
		publication(IndexPublicationEpublished, false, func(p *types.Publication) []string { return one(p.Epublished) }),
		publication(IndexPublicationModified, false, func(p *types.Publication) []string { return one(p.Modified) }),
		publication(IndexPublicationNoPMID, false, func(p *types.Publication) []string {
			if p.PMID != "" {
				return nil
			}
			return one(listKey(p))
		}),
		publication(IndexPublicationNoDOI, false, func(p *types.Publication) []string {
			if p.DOI != "" {
				return nil
			}
			return one(listKey(p))
		}),
		publication(IndexPublicationFirstPublished, false, func(p *types.Publication) []string {
			if !p.Verified || p.Published == "" {
				return nil
			}
			return one(p.FirstPublished())
		}),
		publication(IndexPublicationXref, false, func(p *types.Publication) []string {
			var keys []string
			for _, x := range p.Xrefs {
				key := strings.ToLower(x.Key)
				keys = append(keys, key, strings.ToLower(x.DB)+":"+key)
			}
			return keys
		}),
		publication(IndexPublicationNotes, false, func(p *types.Publication) []string {
			return normalize.Words(p.Notes)
		}),
		publication(IndexPublicationUnverified, false, func(p *types.Publication) []string {
			if p.Verified {
				return nil
			}
			return one(listKey(p))
		}),
		publication(IndexPublicationAcquired, false, func(p *types.Publication) []string {
			if p.Acquired == nil {
				return nil
			}
			return one(p.Acquired.Account)
		}),
		publication(IndexPublicationResearcher, false, func(p *types.Publication) []string {
			var keys []string
			for _, a := range p.Authors {
				keys = append(keys, a.Researcher)
			}
			return keys
		}),

		index(IndexAccountEmail, types.KindAccount, true, func(a *types.Account) []string { return one(a.Email) }),
		index(IndexAccountAPIKey, types.KindAccount, true, func(a *types.Account) []string { return one(a.APIKey) }),
		index(IndexAccountLabel, types.KindAccount, false, func(a *types.Account) []string {
			var keys []string
			for _, l := range a.Labels {
				keys = append(keys, normalize.Value(l))
			}
			return keys
		}),
		index(IndexAccountRole, types.KindAccount, false, func(a *types.Account) []string { return one(string(a.Role)) }),

		index(IndexLabelValue, types.KindLabel, false, func(l *types.Label) []string { return one(l.Value) }),
		index(IndexLabelNormalizedValue, types.KindLabel, true, func(l *types.Label) []string { return one(l.NormalizedValue) }),
		index(IndexLabelParts, types.KindLabel, false, func(l *types.Label) []string { return normalize.Words(l.Value) }),

		index(IndexJournalTitle, types.KindJournal, true, func(j *types.Journal) []string { return one(j.Title) }),
		index(IndexJournalISSN, types.KindJournal, false, func(j *types.Journal) []string { return []string{j.ISSN, j.ISSNL} }),

		index(IndexResearcherORCID, types.KindResearcher, true, func(r *types.Researcher) []string { return one(r.ORCID) }),
		index(IndexResearcherFamily, types.KindResearcher, false, func(r *types.Researcher) []string { return one(r.FamilyNormalized) }),
		index(IndexResearcherName, types.KindResearcher, false, func(r *types.Researcher) []string {
			return one(strings.TrimSpace(r.FamilyNormalized + " " + r.InitialsNormalized))
		}),

		index(IndexBlacklistPMID, types.KindBlacklist, false, func(b *types.BlacklistEntry) []string { return one(b.PMID) }),
		index(IndexBlacklistDOI, types.KindBlacklist, false, func(b *types.BlacklistEntry) []string { return one(b.DOI) }),

		index(IndexLogDoc, types.KindLog, false, func(l *types.LogEntry) []string { return one(l.Doc) }),
		index(IndexLogAccount, types.KindLog, false, func(l *types.LogEntry) []string { return one(l.Account) }),
		index(IndexLogModified, types.KindLog, false, func(l *types.LogEntry) []string { return one(l.Modified) }),
	}
}

// authorKeys emits the normalized family name alone and combined with
// the initials and with the given name.
func authorKeys(p *types.Publication) []string {
	var keys []string
	for _, a := range p.Authors {
		family := a.FamilyNormalized
		if family == "" {
			family = normalize.Value(a.Family)
		}
		if family == "" {
			continue
		}
		keys = append(keys, family)
		if a.InitialsNormalized != "" {
			keys = append(keys, family+" "+a.InitialsNormalized)
		}
		if a.GivenNormalized != "" {
			keys = append(keys, family+" "+a.GivenNormalized)
		}
	}
	return keys
}

// listKey orders maintenance lists by publication date, falling back to
// the modification time.
func listKey(p *types.Publication) string {
	if p.Published != "" {
		return p.Published
	}
	return p.Modified
}
