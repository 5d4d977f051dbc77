// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/publications/internal/account"
	"github.com/pdiddy/publications/pkg/types"
)

// APIKeyHeader carries an account API key.
const APIKeyHeader = "X-Publications-API-key"

// SessionCookie carries the signed session token of a logged-in browser.
const SessionCookie = "publications_user"

const accountKey = "account"

// requestLogger logs one event per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		ev := s.logger.Info()
		if c.Writer.Status() >= 500 {
			ev = s.logger.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Str("actor", actorOf(c)).
			Msg("request")
	}
}

// authenticate resolves the API key header, or else the session cookie,
// to an account. A request with neither proceeds anonymously; a request
// with invalid credentials also proceeds anonymously so that read-only
// routes keep working.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if key := c.GetHeader(APIKeyHeader); key != "" {
			a, err := s.accounts.APIKey(ctx, key)
			if err == nil {
				c.Set(accountKey, a)
			} else if !errors.Is(err, account.ErrNotAuthenticated) {
				s.fail(c, err)
				return
			}
			c.Next()
			return
		}
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			a, err := s.accounts.Session(ctx, token)
			if err == nil {
				c.Set(accountKey, a)
			} else if !errors.Is(err, account.ErrNotAuthenticated) {
				s.fail(c, err)
				return
			}
		}
		c.Next()
	}
}

// requireLogin rejects anonymous requests.
func (s *Server) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if current(c) == nil {
			s.fail(c, account.ErrNotAuthenticated)
			return
		}
		c.Next()
	}
}

// requireAdmin rejects requests not made by an admin.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := account.RequireAdmin(current(c)); err != nil {
			s.fail(c, err)
			return
		}
		c.Next()
	}
}

// current returns the authenticated account, or nil.
func current(c *gin.Context) *types.Account {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil
	}
	a, _ := v.(*types.Account)
	return a
}

func actorOf(c *gin.Context) string {
	if a := current(c); a != nil {
		return a.Email
	}
	return ""
}
