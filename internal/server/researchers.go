// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/publications/internal/search"
	"github.com/pdiddy/publications/pkg/types"
)

var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ResearcherView is the JSON projection of a researcher.
type ResearcherView struct {
	*types.Researcher
	Publications int   `json:"n_publications"`
	Links        Links `json:"links"`
}

func (s *Server) researcherView(r *types.Researcher, n int) ResearcherView {
	v := ResearcherView{
		Researcher:   r,
		Publications: n,
		Links:        Links{Self: Link{Rel: "self", Href: s.url("researcher", r.ID+".json")}},
	}
	if r.ORCID != "" {
		v.Links.Display = append(v.Links.Display, Link{Rel: "orcid", Href: "https://orcid.org/" + r.ORCID})
	}
	return v
}

type researcherRequest struct {
	Rev          string   `json:"rev"`
	Family       string   `json:"family"`
	Given        string   `json:"given"`
	Initials     string   `json:"initials"`
	ORCID        string   `json:"orcid"`
	Affiliations []string `json:"affiliations"`
}

func (r researcherRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Family, validation.Required),
		validation.Field(&r.ORCID, validation.Match(orcidPattern)),
	)
}

func (r researcherRequest) apply(res *types.Researcher) {
	if r.Rev != "" {
		res.Rev = r.Rev
	}
	res.Family = r.Family
	res.Given = r.Given
	res.Initials = r.Initials
	res.ORCID = r.ORCID
	res.Affiliations = r.Affiliations
}

func (s *Server) allResearchers(c *gin.Context) {
	ctx := c.Request.Context()
	all, err := s.store.AllResearchers(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]ResearcherView, 0, len(all))
	for _, r := range all {
		pubs, err := s.store.ResearcherPublications(ctx, r.ID)
		if err != nil {
			s.fail(c, err)
			return
		}
		out = append(out, s.researcherView(r, len(pubs)))
	}
	c.JSON(http.StatusOK, gin.H{"researchers": out})
}

func (s *Server) getResearcher(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := s.store.LookupResearcher(ctx, trimJSON(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	pubs, err := s.store.ResearcherPublications(ctx, r.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"researcher": s.researcherView(r, len(pubs)), "publications": s.views(pubs)})
}

func (s *Server) createResearcher(c *gin.Context) {
	var req researcherRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	r := &types.Researcher{}
	req.apply(r)
	r.Rev = ""
	if _, err := s.store.SaveResearcher(c.Request.Context(), r, actorOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.researcherView(r, 0))
}

func (s *Server) editResearcher(c *gin.Context) {
	var req researcherRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := s.store.LookupResearcher(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	req.apply(r)
	if _, err := s.store.SaveResearcher(ctx, r, actorOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	pubs, err := s.store.ResearcherPublications(ctx, r.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.researcherView(r, len(pubs)))
}

func (s *Server) deleteResearcher(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := s.store.LookupResearcher(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.DeleteResearcher(ctx, r, actorOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type linkRequest struct {
	Researcher string `json:"researcher"`
}

func (r linkRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Researcher, validation.Required))
}

func (s *Server) linkResearcher(c *gin.Context) {
	var req linkRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := s.store.LookupResearcher(ctx, req.Researcher)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.curator.LinkResearcher(ctx, c.Param("id"), r, actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(p))
}

func (s *Server) unlinkResearcher(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := s.store.LookupResearcher(ctx, c.Param("researcher"))
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.curator.UnlinkResearcher(ctx, c.Param("id"), r.ID, actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(p))
}

// subset selects publications by the repeatable query parameters year,
// label, author, orcid and issn.
func (s *Server) subset(c *gin.Context) {
	criteria := search.Criteria{
		Years:   c.QueryArray("year"),
		Labels:  c.QueryArray("label"),
		Authors: c.QueryArray("author"),
		ORCIDs:  c.QueryArray("orcid"),
		ISSNs:   c.QueryArray("issn"),
	}
	ctx := c.Request.Context()
	sub, err := search.Select(ctx, s.store, criteria)
	if err != nil {
		s.fail(c, err)
		return
	}
	pubs, err := sub.Publications(ctx, s.store)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"criteria": criteria, "publications": s.views(pubs)})
}
