// internal/page/variant.go
//
// Content-variant registry (open set of page types).
//
// Context
// -------
// Each page type stores its document in its own table, joined 1:1 to the
// base `page` row by shared primary key.  A variant registers a Loader in
// an init() function; the directory dispatches on the base row's
// `page_type` discriminator.  Adding a page type means adding a table and
// registering a loader — the resolution contract never changes.

package page

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Loader is the contract one content variant fulfils.  All writes run on
// the caller's transaction so a variant failure rolls the base row back
// with it.
type Loader interface {
	// Type returns the discriminator tag stored in page.page_type.
	Type() string

	// Load fetches the variant document for one page id.
	Load(ctx context.Context, q sqlx.QueryerContext, pageID uint64) (json.RawMessage, error)

	// Insert creates the variant row keyed by pageID.
	Insert(ctx context.Context, tx *sqlx.Tx, pageID uint64, doc json.RawMessage) error

	// Update replaces the variant document.
	Update(ctx context.Context, tx *sqlx.Tx, pageID uint64, doc json.RawMessage) error

	// Delete removes the variant row.  Missing rows are not an error.
	Delete(ctx context.Context, e sqlx.ExecerContext, pageID uint64) error

	// DeleteForWebsite removes every variant row owned by a website, used
	// by the website-delete cascade.
	DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error
}

var (
	mu      sync.RWMutex
	loaders = map[string]Loader{}
)

// Register is invoked from variant init() functions.
func Register(l Loader) {
	mu.Lock()
	loaders[l.Type()] = l
	mu.Unlock()
}

// loaderFor returns the Loader registered for tag.
func loaderFor(tag string) (Loader, bool) {
	mu.RLock()
	defer mu.RUnlock()
	l, ok := loaders[tag]
	return l, ok
}

// allLoaders returns every registered loader in arbitrary order.
func allLoaders() []Loader {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Loader, 0, len(loaders))
	for _, l := range loaders {
		out = append(out, l)
	}
	return out
}
