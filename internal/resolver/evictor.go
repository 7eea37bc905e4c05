// evictor.go houses the eviction loop for Cache.  Every evictInterval it
// scans the map and removes:
//
//   - sites idle longer than idleTTL
//   - least-recently-used sites when map size exceeds maxEntries
//
// Each eviction event is logged and updates Prometheus counters.
package resolver

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/yanizio/forge/internal/metrics"
)

func (c *Cache) evictLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C:
		}

		now := time.Now().UnixNano()
		var count int

		// ----------------------------------------------------------------
		// Idle eviction pass
		// ----------------------------------------------------------------
		c.m.Range(func(key, value any) bool {
			count++
			ent := value.(*entry)
			idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
			if idle > c.idleTTL {
				c.m.Delete(key)
				count--
				c.log.Infow("site evicted", "host", key, "idle", idle.Truncate(time.Second))
				metrics.SiteEvictTotal.Inc()
				metrics.ActiveSites.Dec()
			}
			return true
		})

		// ----------------------------------------------------------------
		// LRU eviction pass
		// ----------------------------------------------------------------
		if c.maxEntries > 0 && count > c.maxEntries {
			type kv struct {
				key string
				at  int64
			}
			var all []kv
			c.m.Range(func(key, value any) bool {
				ent := value.(*entry)
				all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&ent.lastSeen)})
				return true
			})
			sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
			for i := 0; i < count-c.maxEntries && i < len(all); i++ {
				if _, ok := c.m.LoadAndDelete(all[i].key); ok {
					c.log.Infow("site evicted", "host", all[i].key, "reason", "lru")
					metrics.SiteEvictTotal.Inc()
					metrics.ActiveSites.Dec()
				}
			}
		}
	}
}
