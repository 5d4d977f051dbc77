// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Author is one entry of a publication's author list. The normalized
// fields are ASCII-folded lowercase shadows used by the search indexes.
type Author struct {
	Family             string `json:"family" yaml:"family"`
	FamilyNormalized   string `json:"family_normalized" yaml:"family_normalized"`
	Given              string `json:"given,omitempty" yaml:"given,omitempty"`
	GivenNormalized    string `json:"given_normalized,omitempty" yaml:"given_normalized,omitempty"`
	Initials           string `json:"initials,omitempty" yaml:"initials,omitempty"`
	InitialsNormalized string `json:"initials_normalized,omitempty" yaml:"initials_normalized,omitempty"`
	ORCID              string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
	Researcher         string `json:"researcher,omitempty" yaml:"researcher,omitempty"`
}

// JournalRef is the journal block embedded in a publication.
type JournalRef struct {
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	ISSN         string `json:"issn,omitempty" yaml:"issn,omitempty"`
	ISSNL        string `json:"issn-l,omitempty" yaml:"issn-l,omitempty"`
	Volume       string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue        string `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages        string `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Xref is a cross-reference to an external database entry.
type Xref struct {
	DB  string `json:"db" yaml:"db"`
	Key string `json:"key" yaml:"key"`
}

// Acquired records an exclusive edit lock on a publication.
type Acquired struct {
	Account  string `json:"account" yaml:"account"`
	Deadline string `json:"deadline" yaml:"deadline"`
}

// QCFlag is one quality-control aspect recorded by a curator.
type QCFlag struct {
	Flag    bool   `json:"flag" yaml:"flag"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
}

// Draft is the bibliographic part of a publication as produced by a
// BibSource adapter. Dates are YYYY-MM-DD with 00 for an unknown day.
type Draft struct {
	Title      string     `json:"title" yaml:"title"`
	Authors    []Author   `json:"authors" yaml:"authors"`
	Journal    JournalRef `json:"journal" yaml:"journal"`
	Type       string     `json:"type,omitempty" yaml:"type,omitempty"`
	Published  string     `json:"published,omitempty" yaml:"published,omitempty"`
	Epublished string     `json:"epublished,omitempty" yaml:"epublished,omitempty"`
	Abstract   string     `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	PMID       string     `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	DOI        string     `json:"doi,omitempty" yaml:"doi,omitempty"`
	Xrefs      []Xref     `json:"xrefs,omitempty" yaml:"xrefs,omitempty"`
}

// Publication is the canonical curated record.
type Publication struct {
	Meta  `yaml:",inline"`
	Draft `yaml:",inline"`

	Labels   Labels            `json:"labels,omitempty" yaml:"labels,omitempty"`
	Notes    string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	QC       map[string]QCFlag `json:"qc,omitempty" yaml:"qc,omitempty"`
	Verified bool              `json:"verified,omitempty" yaml:"verified,omitempty"`
	Acquired *Acquired         `json:"acquired,omitempty" yaml:"acquired,omitempty"`
}

// Year returns the four-digit year of the published date, or "" when unknown.
func (p *Publication) Year() string {
	if len(p.Published) < 4 {
		return ""
	}
	return p.Published[:4]
}

// FirstPublished returns the earlier of published and epublished.
func (p *Publication) FirstPublished() string {
	if p.Epublished != "" && p.Epublished < p.Published {
		return p.Epublished
	}
	return p.Published
}

// HasXref reports whether the publication already carries db:key.
func (p *Publication) HasXref(x Xref) bool {
	for _, have := range p.Xrefs {
		if have == x {
			return true
		}
	}
	return false
}
