package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"planproof/internal/port"
)

// circuitState tracks rate-limit backoff for a single resolver.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackResolver tries resolvers in order, skipping those with open circuits.
// It implements port.FieldResolver.
type FallbackResolver struct {
	resolvers []port.FieldResolver
	circuits  []*circuitState
	names     []string
}

// NewFallbackResolver creates a FallbackResolver from an ordered list of resolvers and their names.
func NewFallbackResolver(resolvers []port.FieldResolver, names []string) *FallbackResolver {
	circuits := make([]*circuitState, len(resolvers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackResolver{
		resolvers: resolvers,
		circuits:  circuits,
		names:     names,
	}
}

func (f *FallbackResolver) Resolve(ctx context.Context, input port.ResolveInput) (*port.ResolveOutput, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, r := range f.resolvers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("resolver.FallbackResolver: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := r.Resolve(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("resolver.FallbackResolver: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil {
		// All resolvers were skipped due to open circuits
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all resolvers rate limited"), int(retryAfter.Seconds()))
	}

	if allRateLimited {
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all resolvers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all resolvers failed: %w", lastErr)
}
