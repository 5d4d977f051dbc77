// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/publications/internal/acquire"
	"github.com/pdiddy/publications/internal/search"
	"github.com/pdiddy/publications/pkg/types"
)

// bind decodes the JSON body into req and runs its validation.
func bind(c *gin.Context, req validation.Validatable) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errBadRequest(err)
	}
	if err := req.Validate(); err != nil {
		return errBadRequest(err)
	}
	return nil
}

func trimJSON(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "/"), ".json")
}

func (s *Server) getPublication(c *gin.Context) {
	id := trimJSON(c.Param("id"))
	if id == "" {
		s.fail(c, fmt.Errorf("%w: missing identifier", ErrBadRequest))
		return
	}
	p, err := s.store.Lookup(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(p))
}

func (s *Server) publicationsByYear(c *gin.Context) {
	year := trimJSON(c.Param("year"))
	if err := validation.Validate(year, validation.Required, validation.Length(4, 4)); err != nil {
		s.fail(c, fmt.Errorf("%w: year: %v", ErrBadRequest, err))
		return
	}
	pubs, err := s.store.PublicationsByYear(c.Request.Context(), year)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "publications": s.views(pubs)})
}

func (s *Server) search(c *gin.Context) {
	terms := c.Query("terms")
	pubs, err := search.Search(c.Request.Context(), s.store, terms)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"terms": terms, "publications": s.views(pubs)})
}

func (s *Server) counts(c *gin.Context) {
	counts, err := s.store.Counts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// acquireRequest fetches one identifier, or several when Identifiers is set.
type acquireRequest struct {
	Identifier  string       `json:"identifier"`
	Identifiers []string     `json:"identifiers"`
	Labels      types.Labels `json:"labels"`
	Verify      bool         `json:"verify"`
	Override    bool         `json:"override"`
}

func (r acquireRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required.When(len(r.Identifiers) == 0)),
	)
}

type batchResponse struct {
	Succeeded []PublicationView `json:"succeeded"`
	Failed    []batchFailure    `json:"failed"`
}

type batchFailure struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
	Kind       string `json:"kind"`
}

func (s *Server) acquire(c *gin.Context) {
	var req acquireRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	opts := acquire.Options{Verify: req.Verify, Override: req.Override}
	ctx := c.Request.Context()

	if len(req.Identifiers) == 0 {
		p, err := s.pipeline.Acquire(ctx, req.Identifier, req.Labels, actorOf(c), opts)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s.view(p))
		return
	}

	res, err := s.pipeline.AcquireMany(ctx, req.Identifiers, req.Labels, actorOf(c), opts)
	if err != nil && res.Total() == 0 {
		s.fail(c, err)
		return
	}
	out := batchResponse{Succeeded: []PublicationView{}, Failed: []batchFailure{}}
	for _, ok := range res.Succeeded {
		out.Succeeded = append(out.Succeeded, s.view(ok.Publication))
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, batchFailure{Identifier: f.Identifier, Error: f.Err.Error(), Kind: f.Kind.String()})
	}
	c.JSON(http.StatusOK, out)
}

type labelsRequest struct {
	Labels types.Labels `json:"labels"`
}

func (r labelsRequest) Validate() error { return nil }

func (s *Server) setLabels(c *gin.Context) {
	var req labelsRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.curator.SetLabels(c.Request.Context(), c.Param("id"), req.Labels, actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(p))
}

func (s *Server) checkout(c *gin.Context) {
	p, err := s.curator.Checkout(c.Request.Context(), c.Param("id"), actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(p))
}

func (s *Server) release(c *gin.Context) {
	force := current(c).IsAdmin() && c.Query("force") == "true"
	p, err := s.curator.Release(c.Request.Context(), c.Param("id"), actorOf(c), force)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(p))
}

func (s *Server) blacklist(c *gin.Context) {
	entry, err := s.curator.Blacklist(c.Request.Context(), c.Param("id"), actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if entry == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) deletePublication(c *gin.Context) {
	if err := s.curator.Delete(c.Request.Context(), c.Param("id"), actorOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
