// internal/page/static.go
//
// Static page variant: an opaque "components" document edited by the site
// builder and rendered client-side.  The core stores the document verbatim.

package page

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
)

// TypeStatic is the discriminator for the static content variant.
const TypeStatic = "static"

func init() { Register(staticLoader{}) }

type staticLoader struct{}

func (staticLoader) Type() string { return TypeStatic }

func (staticLoader) Load(ctx context.Context, q sqlx.QueryerContext, pageID uint64) (json.RawMessage, error) {
	const query = `SELECT components FROM static_page WHERE page_id = ? LIMIT 1`
	var doc []byte
	if err := sqlx.GetContext(ctx, q, &doc, query, pageID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (staticLoader) Insert(ctx context.Context, tx *sqlx.Tx, pageID uint64, doc json.RawMessage) error {
	if len(doc) == 0 {
		doc = json.RawMessage(`[]`)
	}
	const query = `INSERT INTO static_page (page_id, components) VALUES (?, ?)`
	_, err := tx.ExecContext(ctx, query, pageID, []byte(doc))
	return err
}

func (staticLoader) Update(ctx context.Context, tx *sqlx.Tx, pageID uint64, doc json.RawMessage) error {
	const query = `UPDATE static_page SET components = ? WHERE page_id = ?`
	res, err := tx.ExecContext(ctx, query, []byte(doc), pageID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (staticLoader) Delete(ctx context.Context, e sqlx.ExecerContext, pageID uint64) error {
	const query = `DELETE FROM static_page WHERE page_id = ?`
	_, err := e.ExecContext(ctx, query, pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (staticLoader) DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error {
	const query = `
        DELETE sp FROM static_page sp
        JOIN   page p ON p.id = sp.page_id
        WHERE  p.website_id = ?`
	_, err := tx.ExecContext(ctx, query, websiteID)
	return err
}
