// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"strings"

	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/pkg/types"
)

// Link is one display URL.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// XrefView is a cross-reference with its display URL, when a template exists.
type XrefView struct {
	types.Xref
	URL string `json:"url,omitempty"`
}

// PublicationView is the JSON projection of a publication.
type PublicationView struct {
	*types.Publication
	Xrefs []XrefView `json:"xrefs,omitempty"`
	Links Links      `json:"links"`
}

// Links groups the URLs of a publication.
type Links struct {
	Self    Link   `json:"self"`
	Display []Link `json:"display,omitempty"`
}

// view projects p for output.
func (s *Server) view(p *types.Publication) PublicationView {
	v := PublicationView{
		Publication: p,
		Links: Links{
			Self: Link{Rel: "self", Href: s.url("publication", p.ID+".json")},
		},
	}
	if p.PMID != "" {
		v.Links.Display = append(v.Links.Display, Link{Rel: "pubmed", Href: fmt.Sprintf(identifier.PubMedURL, p.PMID)})
	}
	if p.DOI != "" {
		v.Links.Display = append(v.Links.Display, Link{Rel: "doi", Href: fmt.Sprintf(identifier.DOIURL, p.DOI)})
	}
	for _, x := range p.Xrefs {
		xv := XrefView{Xref: x}
		if tmpl, ok := s.xrefTemplates[strings.ToLower(x.DB)]; ok {
			xv.URL = fmt.Sprintf(tmpl, x.Key)
		}
		v.Xrefs = append(v.Xrefs, xv)
	}
	return v
}

func (s *Server) views(pubs []*types.Publication) []PublicationView {
	out := make([]PublicationView, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, s.view(p))
	}
	return out
}

// url joins the base URL and path segments.
func (s *Server) url(parts ...string) string {
	return strings.TrimSuffix(s.baseURL, "/") + "/" + strings.Join(parts, "/")
}
