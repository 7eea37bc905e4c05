// internal/page/directory.go
//
// PageDirectory — routable content units per website.
//
// Context
// -------
// Two per-website uniqueness constraints (title, path) guard the page
// namespace.  Every check-then-write sequence runs on one transaction so
// concurrent creates targeting the same title or path yield exactly one
// success and one conflict; UNIQUE KEYs on (website_id, title) and
// (website_id, path) back the same invariants at the schema level.  Base
// and variant rows are written as one atomic unit — a variant failure
// rolls the base insert back, so dangling base rows cannot exist.
//
// Path policy
// -----------
// An empty path derives deterministically from the title (see
// internal/routing).  A derived path that collides fails the create with
// Conflict; the directory never mutates a requested or derived path.

package page

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/database"
	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/metrics"
	"github.com/yanizio/forge/internal/routing"
)

// Directory implements page create, resolve, rename, move, and delete.
type Directory struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

// NewDirectory returns a Directory bound to the control-plane pool.
func NewDirectory(db *sqlx.DB, log *zap.SugaredLogger) *Directory {
	return &Directory{db: db, log: log}
}

//
// row probes (transaction-scoped)
//

func titleTaken(ctx context.Context, q sqlx.QueryerContext, websiteID, title string, excludeID uint64) (bool, error) {
	const query = `
        SELECT id FROM page
        WHERE  website_id = ? AND title = ? AND id <> ?
        LIMIT  1`
	var id uint64
	err := sqlx.GetContext(ctx, q, &id, query, websiteID, title, excludeID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func pathTaken(ctx context.Context, q sqlx.QueryerContext, websiteID, path string, excludeID uint64) (bool, error) {
	const query = `
        SELECT id FROM page
        WHERE  website_id = ? AND path = ? AND id <> ?
        LIMIT  1`
	var id uint64
	err := sqlx.GetContext(ctx, q, &id, query, websiteID, path, excludeID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func byID(ctx context.Context, q sqlx.QueryerContext, pageID uint64) (*Record, error) {
	const query = `
        SELECT id, website_id, page_type, title, path, is_home, created_at, updated_at
        FROM   page
        WHERE  id = ?
        LIMIT  1`
	var rec Record
	if err := sqlx.GetContext(ctx, q, &rec, query, pageID); err != nil {
		return nil, err
	}
	return &rec, nil
}

//
// operations
//

// Create inserts the base row and exactly one variant row as one atomic
// unit.  An empty path is derived from the title; is_home marks the
// website's root page.
func (d *Directory) Create(ctx context.Context, websiteID, title, path, pageType string, doc json.RawMessage, isHome bool) (*Record, error) {
	const op = "page.create"

	if title == "" {
		return nil, fault.New(fault.InvalidInput, op, "title must not be empty")
	}
	loader, ok := loaderFor(pageType)
	if !ok {
		return nil, fault.New(fault.InvalidInput, op, "unknown page type %q", pageType)
	}

	path = routing.NormalizePath(path)
	if path == "" {
		path = routing.BuildPath("", routing.MakeSlug(title))
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	defer tx.Rollback()

	if taken, err := titleTaken(ctx, tx, websiteID, title, 0); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	} else if taken {
		return nil, fault.New(fault.Conflict, op, "title %q already in use", title)
	}
	if taken, err := pathTaken(ctx, tx, websiteID, path, 0); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	} else if taken {
		return nil, fault.New(fault.Conflict, op, "path %q already in use", path)
	}

	const insertQ = `
        INSERT INTO page (website_id, page_type, title, path, is_home, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, NOW(), NOW())`
	res, err := tx.ExecContext(ctx, insertQ, websiteID, pageType, title, path, isHome)
	if database.IsDuplicate(err) {
		// Concurrent create won the race between the probe and the insert.
		return nil, fault.New(fault.Conflict, op, "title or path already in use")
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	pageID, err := res.LastInsertId()
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	// Variant row shares the base row's identity.
	if err := loader.Insert(ctx, tx, uint64(pageID), doc); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	d.log.Infow("page created",
		"website", websiteID, "page", pageID, "type", pageType, "path", path)
	return &Record{ID: uint64(pageID), WebsiteID: websiteID, PageType: pageType,
		Title: title, Path: path, IsHome: isHome}, nil
}

// Resolve maps (website, path) to the page's type and content document.
// Dispatch is polymorphic over the registered variant set.
func (d *Directory) Resolve(ctx context.Context, websiteID, path string) (string, json.RawMessage, error) {
	const op = "page.resolve"

	path = routing.NormalizePath(path)
	if path == "" {
		path = "/"
	}

	const query = `
        SELECT id, website_id, page_type, title, path, is_home, created_at, updated_at
        FROM   page
        WHERE  website_id = ? AND path = ?
        LIMIT  1`
	var rec Record
	err := sqlx.GetContext(ctx, d.db, &rec, query, websiteID, path)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.PageResolveTotal.WithLabelValues("miss").Inc()
		return "", nil, fault.New(fault.NotFound, op, "no page at %q", path)
	}
	if err != nil {
		return "", nil, fault.Wrap(fault.Internal, op, err)
	}

	loader, ok := loaderFor(rec.PageType)
	if !ok {
		return "", nil, fault.New(fault.Internal, op, "no loader for type %q", rec.PageType)
	}
	doc, err := loader.Load(ctx, d.db, rec.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Base row without its variant: schema invariant broken.
		return "", nil, fault.New(fault.Internal, op, "variant row missing for page %d", rec.ID)
	}
	if err != nil {
		return "", nil, fault.Wrap(fault.Internal, op, err)
	}

	metrics.PageResolveTotal.WithLabelValues("hit").Inc()
	return rec.PageType, doc, nil
}

// Get returns the base row for ownership checks and listings.
func (d *Directory) Get(ctx context.Context, pageID uint64) (*Record, error) {
	const op = "page.get"
	rec, err := byID(ctx, d.db, pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, op, "page %d not found", pageID)
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rec, nil
}

// ListForWebsite returns the website's pages ordered by path.
func (d *Directory) ListForWebsite(ctx context.Context, websiteID string) ([]Record, error) {
	const op = "page.list"
	const query = `
        SELECT id, website_id, page_type, title, path, is_home, created_at, updated_at
        FROM   page
        WHERE  website_id = ?
        ORDER  BY path`
	var rows []Record
	if err := sqlx.SelectContext(ctx, d.db, &rows, query, websiteID); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rows, nil
}

// Home returns the page flagged as the website's root, if any.
func (d *Directory) Home(ctx context.Context, websiteID string) (*Record, error) {
	const op = "page.home"
	const query = `
        SELECT id, website_id, page_type, title, path, is_home, created_at, updated_at
        FROM   page
        WHERE  website_id = ? AND is_home = TRUE
        LIMIT  1`
	var rec Record
	err := sqlx.GetContext(ctx, d.db, &rec, query, websiteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, op, "no home page")
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return &rec, nil
}

// Rename changes the title under the per-website uniqueness discipline,
// excluding the row itself from the probe.
func (d *Directory) Rename(ctx context.Context, pageID uint64, newTitle string) error {
	const op = "page.rename"
	if newTitle == "" {
		return fault.New(fault.InvalidInput, op, "title must not be empty")
	}
	return d.updateGuarded(ctx, op, pageID, func(ctx context.Context, tx *sqlx.Tx, rec *Record) error {
		if taken, err := titleTaken(ctx, tx, rec.WebsiteID, newTitle, rec.ID); err != nil {
			return fault.Wrap(fault.Internal, op, err)
		} else if taken {
			return fault.New(fault.Conflict, op, "title %q already in use", newTitle)
		}
		const q = `UPDATE page SET title = ?, updated_at = NOW() WHERE id = ?`
		_, err := tx.ExecContext(ctx, q, newTitle, rec.ID)
		if database.IsDuplicate(err) {
			return fault.New(fault.Conflict, op, "title %q already in use", newTitle)
		}
		return err
	})
}

// Move changes the path under the same discipline.
func (d *Directory) Move(ctx context.Context, pageID uint64, newPath string) error {
	const op = "page.move"
	newPath = routing.NormalizePath(newPath)
	if newPath == "" {
		return fault.New(fault.InvalidInput, op, "path must not be empty")
	}
	return d.updateGuarded(ctx, op, pageID, func(ctx context.Context, tx *sqlx.Tx, rec *Record) error {
		if taken, err := pathTaken(ctx, tx, rec.WebsiteID, newPath, rec.ID); err != nil {
			return fault.Wrap(fault.Internal, op, err)
		} else if taken {
			return fault.New(fault.Conflict, op, "path %q already in use", newPath)
		}
		const q = `UPDATE page SET path = ?, updated_at = NOW() WHERE id = ?`
		_, err := tx.ExecContext(ctx, q, newPath, rec.ID)
		if database.IsDuplicate(err) {
			return fault.New(fault.Conflict, op, "path %q already in use", newPath)
		}
		return err
	})
}

// UpdateContent replaces the variant document for a page.
func (d *Directory) UpdateContent(ctx context.Context, pageID uint64, doc json.RawMessage) error {
	const op = "page.update_content"
	return d.updateGuarded(ctx, op, pageID, func(ctx context.Context, tx *sqlx.Tx, rec *Record) error {
		loader, ok := loaderFor(rec.PageType)
		if !ok {
			return fault.New(fault.Internal, op, "no loader for type %q", rec.PageType)
		}
		if err := loader.Update(ctx, tx, rec.ID, doc); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fault.New(fault.Internal, op, "variant row missing for page %d", rec.ID)
			}
			return fault.Wrap(fault.Internal, op, err)
		}
		const q = `UPDATE page SET updated_at = NOW() WHERE id = ?`
		_, err := tx.ExecContext(ctx, q, rec.ID)
		return err
	})
}

// Delete removes variant and base rows in one transaction.
func (d *Directory) Delete(ctx context.Context, pageID uint64) error {
	const op = "page.delete"
	return d.updateGuarded(ctx, op, pageID, func(ctx context.Context, tx *sqlx.Tx, rec *Record) error {
		loader, ok := loaderFor(rec.PageType)
		if !ok {
			return fault.New(fault.Internal, op, "no loader for type %q", rec.PageType)
		}
		if err := loader.Delete(ctx, tx, rec.ID); err != nil {
			return fault.Wrap(fault.Internal, op, err)
		}
		const q = `DELETE FROM page WHERE id = ?`
		_, err := tx.ExecContext(ctx, q, rec.ID)
		return err
	})
}

// DeleteForWebsite removes every variant row, then every base row, on the
// caller's transaction.  Used by the website-delete cascade.
func (d *Directory) DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error {
	for _, l := range allLoaders() {
		if err := l.DeleteForWebsite(ctx, tx, websiteID); err != nil {
			return err
		}
	}
	const q = `DELETE FROM page WHERE website_id = ?`
	_, err := tx.ExecContext(ctx, q, websiteID)
	return err
}

// updateGuarded loads the base row inside a fresh transaction, runs fn,
// and commits.  NotFound surfaces when the row is gone.
func (d *Directory) updateGuarded(ctx context.Context, op string, pageID uint64, fn func(context.Context, *sqlx.Tx, *Record) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	defer tx.Rollback()

	rec, err := byID(ctx, tx, pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return fault.New(fault.NotFound, op, "page %d not found", pageID)
	}
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}

	if err := fn(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}
