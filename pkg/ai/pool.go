package ai

import (
	"context"
	"sync/atomic"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// endpoint is one API host with its own parallelism limit. pending counts
// requests that picked this endpoint, including those still waiting for a
// slot, so selection sees queued load and not just running requests.
type endpoint struct {
	baseURL string
	sem     chan struct{}
	pending atomic.Int64
}

// EndpointPool spreads requests across interchangeable API hosts. Each host
// has its own parallelism limit and new requests go to the host with the
// fewest pending requests.
type EndpointPool struct {
	endpoints []*endpoint
}

// NewEndpointPool builds a pool over the given base URLs, each limited to
// parallelPerHost concurrent requests.
func NewEndpointPool(baseURLs []string, parallelPerHost int) (*EndpointPool, error) {
	if len(baseURLs) == 0 {
		return nil, apperrors.ErrInvalidArgument("at least one endpoint URL is required")
	}
	if parallelPerHost < 1 {
		parallelPerHost = 1
	}

	pool := &EndpointPool{}
	for _, baseURL := range baseURLs {
		pool.endpoints = append(pool.endpoints, &endpoint{
			baseURL: baseURL,
			sem:     make(chan struct{}, parallelPerHost),
		})
	}
	return pool, nil
}

// Size returns the number of hosts in the pool.
func (p *EndpointPool) Size() int { return len(p.endpoints) }

// Acquire picks the least busy endpoint, waits for one of its slots and
// returns its base URL with a release function. The release function must be
// called exactly once.
func (p *EndpointPool) Acquire(ctx context.Context) (string, func(), error) {
	chosen := p.endpoints[0]
	for _, e := range p.endpoints[1:] {
		if e.pending.Load() < chosen.pending.Load() {
			chosen = e
		}
	}
	chosen.pending.Add(1)

	select {
	case chosen.sem <- struct{}{}:
	case <-ctx.Done():
		chosen.pending.Add(-1)
		return "", nil, ctx.Err()
	}

	release := func() {
		<-chosen.sem
		chosen.pending.Add(-1)
	}
	return chosen.baseURL, release, nil
}
