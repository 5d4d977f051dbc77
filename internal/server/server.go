// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the publications database over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pdiddy/publications/internal/account"
	"github.com/pdiddy/publications/internal/acquire"
	"github.com/pdiddy/publications/internal/curate"
	"github.com/pdiddy/publications/internal/labels"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// Deps are the components the handlers call.
type Deps struct {
	Store    *store.Store
	Pipeline *acquire.Pipeline
	Labels   *labels.Coordinator
	Curator  *curate.Curator
	Accounts *account.Service
}

// Server routes HTTP requests to the components.
type Server struct {
	store    *store.Store
	pipeline *acquire.Pipeline
	labels   *labels.Coordinator
	curator  *curate.Curator
	accounts *account.Service

	port          int
	baseURL       string
	xrefTemplates map[string]string
	logger        zerolog.Logger
	engine        *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the router. cfg.Mode selects the gin mode.
func New(cfg types.ServerConfig, site types.SiteConfig, deps Deps, opts ...Option) *Server {
	s := &Server{
		store:         deps.Store,
		pipeline:      deps.Pipeline,
		labels:        deps.Labels,
		curator:       deps.Curator,
		accounts:      deps.Accounts,
		port:          cfg.Port,
		baseURL:       cfg.BaseURL,
		xrefTemplates: site.XrefTemplateURLs,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.authenticate())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/publication/*id", s.getPublication)
	r.GET("/publications/:year", s.publicationsByYear)
	r.GET("/search.json", s.search)
	r.GET("/labels.json", s.allLabels)
	r.GET("/researchers.json", s.allResearchers)
	r.GET("/researcher/:id", s.getResearcher)
	r.GET("/subset.json", s.subset)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)

	api := r.Group("/api", s.requireLogin())
	api.GET("/counts", s.counts)
	api.POST("/publication", s.acquire)
	api.POST("/publication/:id/labels", s.setLabels)
	api.POST("/publication/:id/checkout", s.checkout)
	api.POST("/publication/:id/release", s.release)
	api.POST("/publication/:id/blacklist", s.blacklist)
	api.DELETE("/publication/:id", s.deletePublication)
	api.POST("/publication/:id/researcher", s.linkResearcher)
	api.DELETE("/publication/:id/researcher/:researcher", s.unlinkResearcher)

	admin := api.Group("", s.requireAdmin())
	admin.POST("/label", s.createLabel)
	admin.PUT("/label/:value", s.renameLabel)
	admin.POST("/label/:value/merge", s.mergeLabel)
	admin.DELETE("/label/:value", s.deleteLabel)
	admin.POST("/researcher", s.createResearcher)
	admin.PUT("/researcher/:id", s.editResearcher)
	admin.DELETE("/researcher/:id", s.deleteResearcher)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.port).Msg("serving")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdown)
	}
}
