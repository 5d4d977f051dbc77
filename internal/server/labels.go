// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type labelRequest struct {
	Value string `json:"value"`
}

func (r labelRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Value, validation.Required))
}

type mergeRequest struct {
	Target string `json:"target"`
}

func (r mergeRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Target, validation.Required))
}

func (s *Server) allLabels(c *gin.Context) {
	all, err := s.store.AllLabels(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": all, "qualifiers": s.labels.Qualifiers()})
}

func (s *Server) createLabel(c *gin.Context) {
	var req labelRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.labels.Create(c.Request.Context(), req.Value, actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (s *Server) renameLabel(c *gin.Context) {
	var req labelRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.labels.Rename(c.Request.Context(), c.Param("value"), req.Value, actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) mergeLabel(c *gin.Context) {
	var req mergeRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.labels.Merge(c.Request.Context(), c.Param("value"), req.Target, actorOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) deleteLabel(c *gin.Context) {
	if err := s.labels.Delete(c.Request.Context(), c.Param("value"), actorOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
