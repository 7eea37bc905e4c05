// internal/domain/repository.go
//
// Row helpers for the `domain` table.  Status moves are compare-and-set:
// every UPDATE carries the expected current status in its WHERE clause and
// reports whether a row changed, which is how the lifecycle serializes
// saga steps without holding a lock across provider calls.

package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// byName fetches a row by domain name; the name carries a global UNIQUE
// index, so at most one row matches.
func byName(ctx context.Context, q sqlx.QueryerContext, name string) (*Record, error) {
	const query = `
        SELECT id, website_id, name, status, record_ref, last_error, created_at, updated_at
        FROM   domain
        WHERE  name = ?
        LIMIT  1`
	var rec Record
	err := sqlx.GetContext(ctx, q, &rec, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func byID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*Record, error) {
	const query = `
        SELECT id, website_id, name, status, record_ref, last_error, created_at, updated_at
        FROM   domain
        WHERE  id = ?
        LIMIT  1`
	var rec Record
	if err := sqlx.GetContext(ctx, q, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

func insert(ctx context.Context, tx *sqlx.Tx, websiteID, name string) (uint64, error) {
	const query = `
        INSERT INTO domain (website_id, name, status, created_at, updated_at)
        VALUES (?, ?, ?, NOW(), NOW())`
	res, err := tx.ExecContext(ctx, query, websiteID, name, StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// casStatus moves id from → to and reports whether the row changed.  A
// false return means another step won the race or the status was stale.
func casStatus(ctx context.Context, e sqlx.ExecerContext, id uint64, from, to Status) (bool, error) {
	const query = `
        UPDATE domain SET status = ?, updated_at = NOW()
        WHERE  id = ? AND status = ?`
	res, err := e.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// setVerifying stores the provider record ref and advances pending →
// verifying in one statement.
func setVerifying(ctx context.Context, e sqlx.ExecerContext, id uint64, ref string) (bool, error) {
	const query = `
        UPDATE domain SET status = ?, record_ref = ?, last_error = NULL, updated_at = NOW()
        WHERE  id = ? AND status = ?`
	res, err := e.ExecContext(ctx, query, StatusVerifying, ref, id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// markFailed records the last provider error alongside the failed status,
// guarded by the expected current status.
func markFailed(ctx context.Context, e sqlx.ExecerContext, id uint64, from Status, msg string) (bool, error) {
	const query = `
        UPDATE domain SET status = ?, last_error = ?, updated_at = NOW()
        WHERE  id = ? AND status = ?`
	res, err := e.ExecContext(ctx, query, StatusFailed, msg, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// remove deletes the row, guarded on `deleting` so a concurrent step can
// never drop an active domain.
func remove(ctx context.Context, e sqlx.ExecerContext, id uint64) error {
	const query = `DELETE FROM domain WHERE id = ? AND status = ?`
	_, err := e.ExecContext(ctx, query, id, StatusDeleting)
	return err
}

func listForWebsite(ctx context.Context, q sqlx.QueryerContext, websiteID string) ([]Record, error) {
	const query = `
        SELECT id, website_id, name, status, record_ref, last_error, created_at, updated_at
        FROM   domain
        WHERE  website_id = ?
        ORDER  BY id`
	var rows []Record
	if err := sqlx.SelectContext(ctx, q, &rows, query, websiteID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveWebsiteID maps a custom domain name to its owning website, but
// only once the domain has reached `active`.  Returns "" when the name is
// unknown or not yet serving.  Used by the host resolver.
func ActiveWebsiteID(ctx context.Context, q sqlx.QueryerContext, name string) (string, error) {
	const query = `
        SELECT website_id
        FROM   domain
        WHERE  name = ? AND status = ?
        LIMIT  1`
	var websiteID string
	err := sqlx.GetContext(ctx, q, &websiteID, query, name, StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return websiteID, nil
}

func busyCount(ctx context.Context, q sqlx.QueryerContext, websiteID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM domain
        WHERE  website_id = ? AND status IN (?, ?, ?)`
	var n int
	err := sqlx.GetContext(ctx, q, &n, query,
		websiteID, StatusPending, StatusVerifying, StatusDeleting)
	return n, err
}

// listStale returns non-terminal rows untouched since the cutoff — the
// reconciler's work queue after a crash.
func listStale(ctx context.Context, q sqlx.QueryerContext, cutoff time.Time) ([]Record, error) {
	const query = `
        SELECT id, website_id, name, status, record_ref, last_error, created_at, updated_at
        FROM   domain
        WHERE  status IN (?, ?, ?) AND updated_at < ?
        ORDER  BY updated_at`
	var rows []Record
	err := sqlx.SelectContext(ctx, q, &rows, query,
		StatusPending, StatusVerifying, StatusDeleting, cutoff)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
