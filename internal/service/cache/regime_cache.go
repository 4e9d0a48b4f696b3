package cache

import (
	"context"
	"sync"
	"time"

	"MacroCompass/internal/domain/models"
	domrepo "MacroCompass/internal/domain/repository"
	domsvc "MacroCompass/internal/domain/service"
	pkgcache "MacroCompass/pkg/cache"
	applogger "MacroCompass/pkg/logger"
)

const (
	// DefaultTTL is the freshness window of the cached regime.
	DefaultTTL = 300 * time.Second
	// MirrorKey is the shared-cache key of the latest regime.
	MirrorKey = "regime:latest"
)

// mirrorEntry is the shared-cache payload.
type mirrorEntry struct {
	Result   *models.RegimeResult `json:"result"`
	StoredAt time.Time            `json:"stored_at"`
}

// RegimeCache holds a single computed regime and recomputes it once it is
// older than the TTL. The mutex guards the slot only: it is released while
// the pipeline runs, so concurrent misses may each recompute.
type RegimeCache struct {
	calc      domsvc.RegimeCalculator
	ttl       time.Duration
	now       func() time.Time
	mirror    domrepo.SharedCache
	metrics   domrepo.Metrics
	log       *applogger.Logger
	onRefresh func(ctx context.Context, r *models.RegimeResult)

	mu       sync.Mutex
	result   *models.RegimeResult
	storedAt time.Time
}

// Option configures a RegimeCache.
type Option func(*RegimeCache)

// WithTTL sets the freshness window. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *RegimeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *RegimeCache) { c.now = now }
}

// WithMirror shares computed entries through a cache visible to other replicas.
func WithMirror(m domrepo.SharedCache) Option {
	return func(c *RegimeCache) { c.mirror = m }
}

// WithMetrics records hits and misses.
func WithMetrics(m domrepo.Metrics) Option {
	return func(c *RegimeCache) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *RegimeCache) { c.log = l }
}

// WithOnRefresh registers fn to run after every successful recompute.
func WithOnRefresh(fn func(ctx context.Context, r *models.RegimeResult)) Option {
	return func(c *RegimeCache) { c.onRefresh = fn }
}

// NewRegimeCache wraps calc.
func NewRegimeCache(calc domsvc.RegimeCalculator, opts ...Option) *RegimeCache {
	c := &RegimeCache{
		calc: calc,
		ttl:  DefaultTTL,
		now:  time.Now,
		log:  applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RegimeCache) fresh(at time.Time) bool {
	age := c.now().Sub(at)
	return age >= 0 && age < c.ttl
}

// Get returns the cached regime while it is fresh, otherwise recomputes,
// stores and returns the new one. Recompute errors are returned as is; a
// stale entry is never served in their place.
func (c *RegimeCache) Get(ctx context.Context) (*models.RegimeResult, error) {
	c.mu.Lock()
	if c.result != nil && c.fresh(c.storedAt) {
		r := c.result
		c.mu.Unlock()
		c.record(true)
		return r, nil
	}
	c.mu.Unlock()

	if r, at, ok := c.fromMirror(ctx); ok {
		c.store(r, at)
		c.record(true)
		return r, nil
	}
	c.record(false)

	r, err := c.calc.CalculateRegime(ctx)
	if err != nil {
		return nil, err
	}
	at := c.now()
	c.store(r, at)
	c.toMirror(ctx, r, at)
	if c.onRefresh != nil {
		c.onRefresh(ctx, r)
	}
	return r, nil
}

// Current implements domain.service.RegimeProvider.
func (c *RegimeCache) Current(ctx context.Context) (*models.RegimeResult, error) {
	return c.Get(ctx)
}

func (c *RegimeCache) store(r *models.RegimeResult, at time.Time) {
	c.mu.Lock()
	c.result = r
	c.storedAt = at
	c.mu.Unlock()
}

func (c *RegimeCache) fromMirror(ctx context.Context) (*models.RegimeResult, time.Time, bool) {
	if c.mirror == nil {
		return nil, time.Time{}, false
	}
	var e mirrorEntry
	if err := c.mirror.Get(ctx, MirrorKey, &e); err != nil {
		if !pkgcache.IsMiss(err) {
			c.log.Warn("regime mirror read failed", applogger.Error(err))
		}
		return nil, time.Time{}, false
	}
	if e.Result == nil || !c.fresh(e.StoredAt) {
		return nil, time.Time{}, false
	}
	return e.Result, e.StoredAt, true
}

func (c *RegimeCache) toMirror(ctx context.Context, r *models.RegimeResult, at time.Time) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Set(ctx, MirrorKey, mirrorEntry{Result: r, StoredAt: at}, c.ttl); err != nil {
		c.log.Warn("regime mirror write failed", applogger.Error(err))
	}
}

func (c *RegimeCache) record(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCache(hit)
	}
}

var _ domsvc.RegimeProvider = (*RegimeCache)(nil)
