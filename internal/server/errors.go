// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/publications/internal/account"
	"github.com/pdiddy/publications/internal/acquire"
	"github.com/pdiddy/publications/internal/curate"
	"github.com/pdiddy/publications/internal/labels"
	"github.com/pdiddy/publications/internal/store"
)

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Retry bool   `json:"retry,omitempty"`
}

// ErrBadRequest marks malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

func errBadRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

// classify maps err to an HTTP status and a kind name.
func classify(err error) (int, string, bool) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "BadRequest", false
	case errors.Is(err, account.ErrNotAuthenticated),
		errors.Is(err, account.ErrDisabled),
		errors.Is(err, account.ErrInvalidPassword):
		return http.StatusUnauthorized, "NotAuthenticated", false
	case errors.Is(err, account.ErrNotAuthorized):
		return http.StatusForbidden, "NotAuthorized", false
	case errors.Is(err, account.ErrInvalidCode), errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest, "Invalid", false
	case errors.Is(err, curate.ErrLocked):
		return http.StatusConflict, "Locked", false
	case errors.Is(err, labels.ErrExists):
		return http.StatusConflict, "Exists", false
	case errors.Is(err, store.ErrInUse):
		return http.StatusConflict, "InUse", false
	}

	kind := acquire.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case acquire.KindBadIdentifier, acquire.KindLimitExceeded:
		status = http.StatusBadRequest
	case acquire.KindBlacklisted, acquire.KindStoreConflict, acquire.KindDuplicate:
		status = http.StatusConflict
	case acquire.KindUpstreamNotFound, acquire.KindNotFound:
		status = http.StatusNotFound
	case acquire.KindUpstreamTransient, acquire.KindUpstreamMalformed:
		status = http.StatusBadGateway
	case acquire.KindUpstreamTimeout:
		status = http.StatusGatewayTimeout
	case acquire.KindCanceled:
		status = http.StatusServiceUnavailable
	}
	return status, kind.String(), kind.Retryable()
}

// fail aborts the request with the status mapped from err.
func (s *Server) fail(c *gin.Context, err error) {
	status, kind, retry := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error(), Kind: kind, Retry: retry})
}
