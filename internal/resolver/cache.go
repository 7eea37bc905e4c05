// internal/resolver/cache.go
//
// Host → Site cache.
//
// Context
// -------
// Every public request starts with a host lookup, so resolved sites are
// cached in a sync.Map and loaded on demand behind a singleflight barrier
// (a burst of requests for a cold host costs one database round trip).
// The background evictor drops sites idle past the TTL and trims the map
// under LRU pressure.

package resolver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/forge/internal/metrics"
)

const evictInterval = 5 * time.Minute

// Config bounds the cache; zero values take the defaults below.
type Config struct {
	IdleTTL    time.Duration
	MaxEntries int
}

func (c Config) withDefaults() Config {
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	return c
}

// Cache lazily loads sites by host, stores them in a sync.Map, and evicts
// them on idle TTL or LRU pressure.
type Cache struct {
	db         *sqlx.DB
	mainDomain string
	sfg        singleflight.Group
	m          sync.Map
	ticker     *time.Ticker
	done       chan struct{}
	idleTTL    time.Duration
	maxEntries int
	log        *zap.SugaredLogger
}

// New constructs a Cache and starts the background evictor.
func New(db *sqlx.DB, mainDomain string, cfg Config, log *zap.SugaredLogger) *Cache {
	cfg = cfg.withDefaults()
	c := &Cache{
		db:         db,
		mainDomain: mainDomain,
		done:       make(chan struct{}),
		idleTTL:    cfg.IdleTTL,
		maxEntries: cfg.MaxEntries,
		log:        log,
	}
	c.ticker = time.NewTicker(evictInterval)
	go c.evictLoop()
	return c
}

// Close stops the evictor.
func (c *Cache) Close() {
	c.ticker.Stop()
	close(c.done)
}

// Get returns the Site for host, loading it on demand.
func (c *Cache) Get(ctx context.Context, host string) (*Site, error) {
	if v, ok := c.m.Load(host); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.site, nil
	}

	v, err, _ := c.sfg.Do(host, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(host); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.site, nil
		}
		site, err := loadSite(ctx, c.db, c.mainDomain, host)
		if err != nil {
			metrics.SiteLoadErrorsTotal.Inc()
			return nil, err
		}
		ent := &entry{
			site:     site,
			lastSeen: time.Now().UnixNano(),
		}
		c.m.Store(host, ent)
		metrics.SiteLoadTotal.Inc()
		metrics.ActiveSites.Inc()
		return site, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Site), nil
}

// Invalidate drops one host, forcing the next lookup to reload.  Called
// after a website rename or delete and after a domain release.
func (c *Cache) Invalidate(host string) {
	if _, ok := c.m.LoadAndDelete(host); ok {
		metrics.SiteEvictTotal.Inc()
		metrics.ActiveSites.Dec()
	}
}

// InvalidateWebsite drops every cached host that resolved to websiteID.
func (c *Cache) InvalidateWebsite(websiteID string) {
	c.m.Range(func(key, value any) bool {
		if value.(*entry).site.Website.ID == websiteID {
			c.Invalidate(key.(string))
		}
		return true
	})
}
