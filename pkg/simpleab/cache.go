package simpleab

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared fetch once it no longer follows the context of
// the caller that started it.
const fetchTimeout = 30 * time.Second

// ExperimentCache maps experiment ids to their last fetched definition.
// Entries never expire; a later fetch for the same id replaces the stored
// definition. It is safe for concurrent use, and concurrent misses for the same
// id share a single remote call.
type ExperimentCache struct {
	transport Transport
	metrics   *Metrics

	mu     sync.RWMutex
	items  map[string]ExperimentDefinition
	flight singleflight.Group
}

// NewExperimentCache creates an empty cache backed by t.
func NewExperimentCache(t Transport) *ExperimentCache {
	return &ExperimentCache{
		transport: t,
		items:     make(map[string]ExperimentDefinition),
	}
}

// Get returns the cached definition without touching the network.
func (c *ExperimentCache) Get(id string) (ExperimentDefinition, bool) {
	c.mu.RLock()
	def, ok := c.items[id]
	c.mu.RUnlock()
	return def, ok
}

// Put stores definitions, replacing any previous entry with the same id.
func (c *ExperimentCache) Put(defs ...ExperimentDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, def := range defs {
		if def.ID == "" {
			continue
		}
		c.items[def.ID] = def
	}
}

// GetOrFetch returns the cached definition for id, fetching and storing it on a miss.
// It returns ErrNotFound when the remote response does not contain id.
// Transport errors are returned unchanged and nothing is cached.
//
// Concurrent misses for the same id wait on one fetch. The fetch keeps the
// values of the context that started it but not its cancellation, so each
// waiter is bound only by its own ctx. A waiter that gives up gets ctx.Err()
// while the fetch completes for the others.
func (c *ExperimentCache) GetOrFetch(ctx context.Context, id string) (ExperimentDefinition, error) {
	if def, ok := c.Get(id); ok {
		c.metrics.cacheHit()
		return def, nil
	}
	c.metrics.cacheMiss()

	ch := c.flight.DoChan(id, func() (any, error) {
		if def, ok := c.Get(id); ok {
			return def, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		if err := c.Refresh(fetchCtx, id); err != nil {
			return nil, err
		}
		if def, ok := c.Get(id); ok {
			return def, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})

	select {
	case <-ctx.Done():
		return ExperimentDefinition{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ExperimentDefinition{}, res.Err
		}
		return res.Val.(ExperimentDefinition), nil
	}
}

// Refresh fetches ids in one remote call and stores every definition returned.
// Ids missing from the response are left as they were.
func (c *ExperimentCache) Refresh(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	defs, err := c.transport.FetchExperiments(ctx, ids...)
	c.metrics.fetch(err)
	if err != nil {
		return err
	}
	c.Put(defs...)
	return nil
}

// Len returns the number of cached definitions.
func (c *ExperimentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot returns a deep copy of the cache contents.
func (c *ExperimentCache) Snapshot() map[string]ExperimentDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]ExperimentDefinition, len(c.items))
	for id, def := range c.items {
		out[id] = def.Clone()
	}
	return out
}
