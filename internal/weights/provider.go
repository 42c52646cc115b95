package weights

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/cache"
)

// providerRefresh bounds how often the provider re-reads the cache. The
// learned map only changes every few hours, so a short memoization window
// keeps per-item lookups off the wire.
const providerRefresh = time.Minute

// Provider serves learned weights to the score calculator. It satisfies
// score.SourceWeights and is safe for concurrent use.
type Provider struct {
	cache cache.Cache

	mu        sync.Mutex
	records   map[string]Record
	fetchedAt time.Time
}

// NewProvider builds a provider over the shared cache.
func NewProvider(c cache.Cache) *Provider {
	return &Provider{cache: c}
}

// Weight returns the learned weight for a source when one is cached.
func (p *Provider) Weight(sourceID string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.records == nil || time.Since(p.fetchedAt) > providerRefresh {
		p.reload()
	}
	record, ok := p.records[sourceID]
	if !ok {
		return 0, false
	}
	return record.Weight, true
}

func (p *Provider) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	records := make(map[string]Record)
	if err := p.cache.Get(ctx, CacheKey, &records); err != nil && err != cache.ErrNotFound {
		log.Warn().Err(err).Msg("Failed to load learned source weights")
	}
	p.records = records
	p.fetchedAt = time.Now()
}
