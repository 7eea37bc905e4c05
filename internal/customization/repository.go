// internal/customization/repository.go
//
// Row helpers for the `customization` table.  Unlike the website and page
// tables there is no probe-then-insert dance here: website_id is the
// primary key and writes go through a single upsert, so concurrent puts
// simply last-write-win.

package customization

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ForWebsite fetches the theme row for one website; sql.ErrNoRows passes
// through for the caller to classify (the resolver and the service both
// treat it as "default theme").
func ForWebsite(ctx context.Context, q sqlx.QueryerContext, websiteID string) (*Record, error) {
	const query = `
        SELECT website_id, primary_color, secondary_color, logo_url,
               created_at, updated_at
        FROM   customization
        WHERE  website_id = ?
        LIMIT  1`
	var rec Record
	if err := sqlx.GetContext(ctx, q, &rec, query, websiteID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// upsert writes the full theme row.  Nil fields clear the stored value,
// matching the put semantics of the API: the request body is the whole
// theme, not a patch.
func upsert(ctx context.Context, e sqlx.ExecerContext, websiteID string, primary, secondary, logo *string) error {
	const query = `
        INSERT INTO customization
               (website_id, primary_color, secondary_color, logo_url, created_at, updated_at)
        VALUES (?, ?, ?, ?, NOW(), NOW())
        ON DUPLICATE KEY UPDATE
               primary_color   = VALUES(primary_color),
               secondary_color = VALUES(secondary_color),
               logo_url        = VALUES(logo_url),
               updated_at      = NOW()`
	_, err := e.ExecContext(ctx, query, websiteID, primary, secondary, logo)
	return err
}

func remove(ctx context.Context, e sqlx.ExecerContext, websiteID string) error {
	const query = `DELETE FROM customization WHERE website_id = ?`
	_, err := e.ExecContext(ctx, query, websiteID)
	return err
}
