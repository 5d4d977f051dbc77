// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"

	"github.com/pdiddy/publications/internal/bibsource"
	"github.com/pdiddy/publications/internal/store"
)

// Errors returned by the pipeline. Upstream and store failures are
// passed through wrapped; KindOf classifies them.
var (
	ErrBadIdentifier = errors.New("bad identifier")
	ErrBlacklisted   = errors.New("blacklisted")
	ErrLimitExceeded = errors.New("too many identifiers")
)

// Kind is the error kind reported to callers of the pipeline.
type Kind int

const (
	KindNone Kind = iota
	KindBadIdentifier
	KindBlacklisted
	KindUpstreamNotFound
	KindUpstreamTransient
	KindUpstreamMalformed
	KindUpstreamTimeout
	KindStoreConflict
	KindDuplicate
	KindNotFound
	KindLimitExceeded
	KindCanceled
	KindInternal
)

var kindNames = map[Kind]string{
	KindNone:              "None",
	KindBadIdentifier:     "BadIdentifier",
	KindBlacklisted:       "Blacklisted",
	KindUpstreamNotFound:  "UpstreamNotFound",
	KindUpstreamTransient: "UpstreamTransient",
	KindUpstreamMalformed: "UpstreamMalformed",
	KindUpstreamTimeout:   "UpstreamTimeout",
	KindStoreConflict:     "StoreConflict",
	KindDuplicate:         "Duplicate",
	KindNotFound:          "NotFound",
	KindLimitExceeded:     "LimitExceeded",
	KindCanceled:          "Canceled",
	KindInternal:          "Internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Internal"
}

// Retryable reports whether a caller may retry the same request.
func (k Kind) Retryable() bool {
	switch k {
	case KindUpstreamTransient, KindUpstreamTimeout, KindStoreConflict, KindDuplicate:
		return true
	}
	return false
}

// KindOf classifies err. Upstream kinds are checked before store kinds
// since both packages have a not-found sentinel.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBadIdentifier):
		return KindBadIdentifier
	case errors.Is(err, ErrBlacklisted), errors.Is(err, store.ErrBlacklisted):
		return KindBlacklisted
	case errors.Is(err, ErrLimitExceeded):
		return KindLimitExceeded
	case errors.Is(err, bibsource.ErrNotFound):
		return KindUpstreamNotFound
	case errors.Is(err, bibsource.ErrMalformed):
		return KindUpstreamMalformed
	case errors.Is(err, bibsource.ErrTimeout):
		return KindUpstreamTimeout
	case errors.Is(err, bibsource.ErrTransient), errors.Is(err, bibsource.ErrRateLimited):
		return KindUpstreamTransient
	case errors.Is(err, store.ErrConflict):
		return KindStoreConflict
	case errors.Is(err, store.ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
