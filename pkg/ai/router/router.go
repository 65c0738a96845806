package router

import (
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

type Config struct {
	CacheTTL           time.Duration
	BoostWeight        float64
	MinClassifierScore float64
	DefaultCategory    entity.Category
	TenantOverrides    map[string]entity.Category
}

func DefaultConfig() Config {
	return Config{
		CacheTTL:           10 * time.Minute,
		BoostWeight:        0.3,
		MinClassifierScore: 0.3,
		DefaultCategory:    entity.CategoryDefault,
		TenantOverrides:    map[string]entity.Category{},
	}
}

// Decision is the selected category plus the trace of how it was reached.
type Decision struct {
	Category  entity.Category
	Strategy  string
	Scores    map[entity.Category]float64
	Boosted   bool
	Signature string
}

// Router evaluates its strategies in strict priority order; the first that
// decides wins. The default strategy always decides, so Decide never fails.
type Router struct {
	strategies []Strategy
	cache      *gocache.Cache
	cfg        Config
	now        func() time.Time
	logger     logger.ILogger
}

type Option func(*Router)

// WithScorer swaps the fallback classifier.
func WithScorer(scorer Scorer) Option {
	return func(r *Router) {
		for i, s := range r.strategies {
			if cs, ok := s.(classifierStrategy); ok {
				cs.scorer = scorer
				r.strategies[i] = cs
			}
		}
	}
}

// WithClock injects the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
		for i, s := range r.strategies {
			if cs, ok := s.(cacheStrategy); ok {
				cs.now = now
				r.strategies[i] = cs
			}
		}
	}
}

func NewRouter(cfg Config, log logger.ILogger, opts ...Option) *Router {
	if !cfg.DefaultCategory.Valid() {
		cfg.DefaultCategory = entity.CategoryDefault
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	cache := gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	r := &Router{
		cache:  cache,
		cfg:    cfg,
		now:    time.Now,
		logger: log,
	}
	r.strategies = []Strategy{
		overrideStrategy{tenantOverrides: cfg.TenantOverrides},
		cacheStrategy{cache: cache, ttl: cfg.CacheTTL, now: time.Now},
		ruleStrategy{table: DefaultIntentCategories},
		classifierStrategy{scorer: NewNaiveBayesScorer(), boostWeight: cfg.BoostWeight, minScore: cfg.MinClassifierScore},
		defaultStrategy{category: cfg.DefaultCategory},
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Select returns exactly one category for the input.
func (r *Router) Select(in Input) entity.Category {
	return r.Decide(in).Category
}

func (r *Router) Decide(in Input) Decision {
	decision := Decision{Signature: Signature(in.Analysis)}

	for _, strategy := range r.strategies {
		outcome, ok := strategy.Decide(in)
		if outcome.Scores != nil {
			decision.Scores = outcome.Scores
		}
		if !ok {
			continue
		}
		decision.Category = outcome.Category
		decision.Strategy = strategy.Name()
		decision.Boosted = outcome.Boosted
		break
	}

	// a strategy list without a terminal default
	if !decision.Category.Valid() {
		decision.Category = r.cfg.DefaultCategory
		decision.Strategy = StrategyDefault
	}

	r.remember(in, decision)

	r.logger.Debug("ROUTER", "Category selected", map[string]interface{}{
		"tenant_id": in.TenantId,
		"category":  decision.Category,
		"strategy":  decision.Strategy,
		"boosted":   decision.Boosted,
		"signature": decision.Signature,
	})
	return decision
}

// remember writes the decision into the cache. Pins and continuity-boosted
// winners belong to one request or conversation and are not cached.
func (r *Router) remember(in Input, d Decision) {
	if d.Strategy == StrategyCache || d.Strategy == StrategyOverride || d.Boosted {
		return
	}
	if !cacheable(in.Analysis) {
		return
	}
	r.cache.Set(cacheKey(in.TenantId, in.Analysis), cacheEntry{Category: d.Category, StoredAt: r.now()}, r.cfg.CacheTTL)
}

// Flush drops every cached decision.
func (r *Router) Flush() {
	r.cache.Flush()
}
