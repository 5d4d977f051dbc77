// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/publications/pkg/types"
)

// Success is one acquired identifier of a bulk request.
type Success struct {
	Identifier  string
	Outcome     Outcome
	Publication *types.Publication
}

// Failure is one identifier of a bulk request that could not be acquired.
type Failure struct {
	Identifier string
	Kind       Kind
	Err        error
}

// BatchResult partitions the identifiers of a bulk request.
type BatchResult struct {
	Succeeded []Success
	Failed    []Failure
}

// Total returns the number of identifiers processed.
func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// HasFailures reports whether any identifier failed.
func (r BatchResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// AcquireMany acquires each of inputs in order, pausing between
// consecutive items. It continues past failures; earlier successes stay
// in the store. Only the first FetchedLimit identifiers are fetched; the
// rest are reported as failures of kind KindLimitExceeded without any
// upstream call. Cancellation stops the loop and returns what was done.
func (p *Pipeline) AcquireMany(ctx context.Context, inputs []string, requested types.Labels, actor string, opts Options) (BatchResult, error) {
	var result BatchResult
	var skipped []string
	if len(inputs) > p.fetchedLimit {
		inputs, skipped = inputs[:p.fetchedLimit], inputs[p.fetchedLimit:]
		p.logger.Warn().Int("given", len(inputs)+len(skipped)).Int("limit", p.fetchedLimit).
			Str("actor", actor).Msg("bulk acquisition truncated")
	}
	start := time.Now()
	for i, input := range inputs {
		if i > 0 {
			if err := p.sleep(ctx, p.pause); err != nil {
				return result, err
			}
		}
		pub, outcome, err := p.AcquireOutcome(ctx, input, requested, actor, opts)
		if err != nil {
			result.Failed = append(result.Failed, Failure{Identifier: input, Kind: KindOf(err), Err: err})
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}
		result.Succeeded = append(result.Succeeded, Success{Identifier: input, Outcome: outcome, Publication: pub})
	}
	for _, input := range skipped {
		err := fmt.Errorf("%w: %q is past the limit of %d", ErrLimitExceeded, input, p.fetchedLimit)
		result.Failed = append(result.Failed, Failure{Identifier: input, Kind: KindLimitExceeded, Err: err})
	}
	p.logger.Info().Int("succeeded", len(result.Succeeded)).Int("failed", len(result.Failed)).
		Str("actor", actor).Dur("elapsed", time.Since(start)).Msg("bulk acquisition")
	return result, nil
}

// AcquireChunks acquires any number of inputs in consecutive chunks of
// FetchedLimit, pausing between chunks as between items. each, when not
// nil, receives the result of every chunk as it completes. The returned
// result holds all chunks; an error stops the loop.
func (p *Pipeline) AcquireChunks(ctx context.Context, inputs []string, requested types.Labels, actor string, opts Options, each func(BatchResult)) (BatchResult, error) {
	var all BatchResult
	for start := 0; start < len(inputs); start += p.fetchedLimit {
		if start > 0 {
			if err := p.sleep(ctx, p.pause); err != nil {
				return all, err
			}
		}
		end := min(start+p.fetchedLimit, len(inputs))
		res, err := p.AcquireMany(ctx, inputs[start:end], requested, actor, opts)
		all.Succeeded = append(all.Succeeded, res.Succeeded...)
		all.Failed = append(all.Failed, res.Failed...)
		if each != nil {
			each(res)
		}
		if err != nil {
			return all, err
		}
	}
	return all, nil
}
