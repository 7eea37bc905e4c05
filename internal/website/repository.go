// internal/website/repository.go
//
// Row helpers for the `website` table.  The uniqueness probe and the insert
// or update that depends on it always run on the same *sqlx.Tx so two
// concurrent creates cannot both pass the check; a UNIQUE KEY on
// (user_id, name) backs the same invariant at the schema level.

package website

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// nameTaken reports whether the user already owns a website with this name.
// excludeID skips the row being renamed.
func nameTaken(ctx context.Context, q sqlx.QueryerContext, userID, name, excludeID string) (bool, error) {
	const query = `
        SELECT id FROM website
        WHERE  user_id = ? AND name = ? AND id <> ?
        LIMIT  1`
	var id string
	err := sqlx.GetContext(ctx, q, &id, query, userID, name, excludeID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func insert(ctx context.Context, tx *sqlx.Tx, id, userID, name string) error {
	const query = `
        INSERT INTO website (id, user_id, name, created_at, updated_at)
        VALUES (?, ?, ?, NOW(), NOW())`
	_, err := tx.ExecContext(ctx, query, id, userID, name)
	return err
}

// ByID fetches one website row; sql.ErrNoRows passes through for the
// caller to classify.
func ByID(ctx context.Context, q sqlx.QueryerContext, id string) (*Record, error) {
	const query = `
        SELECT id, user_id, name, created_at, updated_at
        FROM   website
        WHERE  id = ?
        LIMIT  1`
	var rec Record
	if err := sqlx.GetContext(ctx, q, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ByUser returns every website owned by userID, newest first.
func ByUser(ctx context.Context, q sqlx.QueryerContext, userID string) ([]Record, error) {
	const query = `
        SELECT id, user_id, name, created_at, updated_at
        FROM   website
        WHERE  user_id = ?
        ORDER  BY created_at DESC`
	var rows []Record
	if err := sqlx.SelectContext(ctx, q, &rows, query, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

func rename(ctx context.Context, tx *sqlx.Tx, id, userID, newName string) (int64, error) {
	const query = `
        UPDATE website SET name = ?, updated_at = NOW()
        WHERE  id = ? AND user_id = ?`
	res, err := tx.ExecContext(ctx, query, newName, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func remove(ctx context.Context, e sqlx.ExecerContext, id, userID string) (int64, error) {
	const query = `DELETE FROM website WHERE id = ? AND user_id = ?`
	res, err := e.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
