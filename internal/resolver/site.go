// internal/resolver/site.go
//
// Resolver cache entry and aggregate.
//
// Context
// -------
// A live Site is what request handlers need to serve one website by host:
// its `website` row plus the host the lookup came in on.  The cache stores
// a pointer to Site inside `entry`, along with a `lastSeen` UnixNano
// timestamp used by the evictor for idle and LRU eviction.

package resolver

import (
	"github.com/yanizio/forge/internal/customization"
	"github.com/yanizio/forge/internal/website"
)

//
// Cache entry
//

type entry struct {
	site     *Site
	lastSeen int64 // UnixNano
}

//
// Site aggregate
//

// Site groups the per-host runtime state needed by request handlers.
// Sites are immutable after load; a change to the underlying website is
// surfaced by Invalidate plus a fresh load.
type Site struct {
	Host    string               // host the site was resolved from
	Website website.Record       // row from `website`
	Theme   customization.Record // theme row, zero-valued when uncustomized
}
