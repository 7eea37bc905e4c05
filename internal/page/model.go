package page

import "time"

// Record mirrors one row in the base `page` table.  Type-specific content
// lives in a variant table that shares this row's id (1:1 extension); the
// `page_type` discriminator names which variant table that is.
type Record struct {
	ID        uint64    `db:"id"         json:"id"`
	WebsiteID string    `db:"website_id" json:"website_id"`
	PageType  string    `db:"page_type"  json:"type"`
	Title     string    `db:"title"      json:"title"`
	Path      string    `db:"path"       json:"path"`
	IsHome    bool      `db:"is_home"    json:"is_home"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
