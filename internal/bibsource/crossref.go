// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibsource

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/publications/pkg/types"
)

// CrossrefBase is the works endpoint. Declared as a var so tests can
// substitute an httptest server.
var CrossrefBase = "https://api.crossref.org/works/"

// Crossref resolves DOIs through the Crossref works API.
type Crossref struct {
	c      *client
	mailto string
}

// NewCrossref returns a Crossref adapter.
func NewCrossref(cfg types.CrossrefConfig, opts ...Option) *Crossref {
	return &Crossref{
		c:      newClient("crossref", CrossrefBase, cfg.HTTPConfig, cfg.Delay, opts),
		mailto: cfg.Mailto,
	}
}

// Name returns "crossref".
func (c *Crossref) Name() string { return c.c.name }

// Fetch retrieves and parses the Crossref work for doi.
func (c *Crossref) Fetch(ctx context.Context, doi string) (*types.Draft, error) {
	segments := strings.Split(doi, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	u := strings.TrimSuffix(c.c.baseURL, "/") + "/" + strings.Join(segments, "/")
	if c.mailto != "" {
		u += "?" + url.Values{"mailto": {c.mailto}}.Encode()
	}
	body, err := c.c.get(ctx, doi, u, "application/json")
	if err != nil {
		return nil, err
	}
	draft, err := ParseCrossref(body)
	if err != nil {
		return nil, &UpstreamError{Source: c.c.name, ID: doi, Err: err}
	}
	if draft.DOI == "" {
		draft.DOI = strings.ToLower(doi)
	}
	return draft, nil
}

// Crossref works API JSON structures.
type crossrefResponse struct {
	Status  string           `json:"status"`
	Message *crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	DOI                 string              `json:"DOI"`
	Title               []string            `json:"title"`
	Assertion           []crossrefAssertion `json:"assertion"`
	Author              []crossrefAuthor    `json:"author"`
	ContainerTitle      []string            `json:"container-title"`
	ShortContainerTitle []string            `json:"short-container-title"`
	ISSN                []string            `json:"ISSN"`
	Volume              string              `json:"volume"`
	Issue               string              `json:"issue"`
	Page                string              `json:"page"`
	Type                string              `json:"type"`
	Abstract            string              `json:"abstract"`
	PublishedPrint      *crossrefDate       `json:"published-print"`
	PublishedOnline     *crossrefDate       `json:"published-online"`
	Issued              *crossrefDate       `json:"issued"`
	Created             *crossrefDate       `json:"created"`
}

type crossrefAssertion struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
	ORCID  string `json:"ORCID"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// parts returns the first date-parts entry; a null year yields nil.
func (d *crossrefDate) parts() dateParts {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] <= 0 {
		return nil
	}
	return dateParts(d.DateParts[0])
}

// firstDate returns the formatted first non-empty date, or "".
func firstDate(dates ...*crossrefDate) string {
	for _, d := range dates {
		if p := d.parts(); p != nil {
			return p.format()
		}
	}
	return ""
}

// ParseCrossref converts a works API response into a draft. The result
// never carries a PMID.
func ParseCrossref(data []byte) (*types.Draft, error) {
	var resp crossrefResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, wrapMalformed("parsing works JSON: %v", err)
	}
	m := resp.Message
	if m == nil {
		return nil, wrapMalformed("missing message")
	}

	d := &types.Draft{
		Title:   plainText(strings.Join(m.Title, " ")),
		DOI:     strings.ToLower(strings.TrimSpace(m.DOI)),
		Authors: crossrefAuthors(m.Author),
		Journal: types.JournalRef{
			Title:        strings.Join(m.ContainerTitle, " "),
			Abbreviation: strings.Join(m.ShortContainerTitle, " "),
			Volume:       m.Volume,
			Issue:        m.Issue,
			Pages:        m.Page,
		},
		Type:       m.Type,
		Published:  firstDate(m.PublishedPrint, m.Issued, m.Created),
		Epublished: firstDate(m.PublishedOnline, m.Issued),
		Abstract:   plainText(m.Abstract),
	}
	if d.Title == "" {
		for _, a := range m.Assertion {
			if a.Name == "articletitle" {
				d.Title = plainText(a.Value)
				break
			}
		}
	}
	if d.Title == "" {
		return nil, wrapMalformed("no title")
	}
	if d.Journal.Title == "" {
		d.Journal.Title = d.Journal.Abbreviation
	}
	if len(m.ISSN) > 0 {
		d.Journal.ISSN = m.ISSN[0]
	}
	return d, nil
}

// crossrefAuthors builds the author list. Dots and dashes in given names
// become spaces; initials are the first letter of each given name part.
func crossrefAuthors(in []crossrefAuthor) []types.Author {
	var out []types.Author
	for _, a := range in {
		family := strings.TrimSpace(a.Family)
		if family == "" {
			family = strings.TrimSpace(a.Name)
		}
		if family == "" {
			continue
		}
		given := strings.NewReplacer(".", " ", "-", " ").Replace(a.Given)
		parts := strings.Fields(given)
		var initials strings.Builder
		for _, p := range parts {
			r, _ := utf8.DecodeRuneInString(p)
			initials.WriteRune(r)
		}
		author := types.Author{
			Family:   family,
			Given:    strings.Join(parts, " "),
			Initials: initials.String(),
			ORCID:    a.ORCID,
		}
		author.FamilyNormalized = shadow(author.Family)
		author.GivenNormalized = shadow(author.Given)
		author.InitialsNormalized = shadow(author.Initials)
		out = append(out, author)
	}
	return out
}
