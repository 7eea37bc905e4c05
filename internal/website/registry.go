// internal/website/registry.go
//
// WebsiteRegistry — root of tenancy.
//
// Context
// -------
// The registry owns the Website entity and the destructive cascade.  A
// website may only be deleted once none of its domains is mid-saga, and the
// cascade runs pages and the theme row first, then external DNS records, then the website row
// itself, so a crash or provider failure can never orphan an external
// record: the website row survives until every record is confirmed gone.
//
// The page and domain collaborators are narrow interfaces; the concrete
// implementations live in internal/page and internal/domain.

package website

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/database"
	"github.com/yanizio/forge/internal/fault"
)

// PageCascader removes every page (base plus variant rows) owned by a
// website inside the caller's transaction.
type PageCascader interface {
	DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error
}

// DomainCascader exposes the slice of the domain lifecycle the cascade
// needs: a busy probe, the owned ids, and a synchronous delete saga.
type DomainCascader interface {
	BusyCount(ctx context.Context, websiteID string) (int, error)
	IDsForWebsite(ctx context.Context, websiteID string) ([]uint64, error)
	Drop(ctx context.Context, domainID uint64) error
}

// ThemeCascader removes the website's customization row inside the
// caller's transaction.
type ThemeCascader interface {
	DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error
}

// Registry implements website create, rename, delete, and lookups.
type Registry struct {
	db      *sqlx.DB
	pages   PageCascader
	domains DomainCascader
	themes  ThemeCascader
	log     *zap.SugaredLogger
}

// NewRegistry wires the registry to its collaborators.
func NewRegistry(db *sqlx.DB, pages PageCascader, domains DomainCascader, themes ThemeCascader, log *zap.SugaredLogger) *Registry {
	return &Registry{db: db, pages: pages, domains: domains, themes: themes, log: log}
}

// Create inserts a new website for userID.  The (user_id, name) uniqueness
// probe and the insert share one transaction.
func (r *Registry) Create(ctx context.Context, userID, name string) (*Record, error) {
	const op = "website.create"

	if len(name) < MinNameLength {
		return nil, fault.New(fault.InvalidInput, op,
			"name must be at least %d characters", MinNameLength)
	}

	id, err := NewID()
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	defer tx.Rollback()

	taken, err := nameTaken(ctx, tx, userID, name, "")
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	if taken {
		return nil, fault.New(fault.Conflict, op, "name %q already in use", name)
	}

	if err := insert(ctx, tx, id, userID, name); err != nil {
		if database.IsDuplicate(err) {
			return nil, fault.New(fault.Conflict, op, "name %q already in use", name)
		}
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	r.log.Infow("website created", "website", id, "user", userID, "name", name)
	return ByID(ctx, r.db, id)
}

// Rename changes the website name under the same uniqueness discipline,
// excluding the row itself from the conflict probe.
func (r *Registry) Rename(ctx context.Context, websiteID, userID, newName string) error {
	const op = "website.rename"

	if len(newName) < MinNameLength {
		return fault.New(fault.InvalidInput, op,
			"name must be at least %d characters", MinNameLength)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	defer tx.Rollback()

	taken, err := nameTaken(ctx, tx, userID, newName, websiteID)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	if taken {
		return fault.New(fault.Conflict, op, "name %q already in use", newName)
	}

	n, err := rename(ctx, tx, websiteID, userID, newName)
	if err != nil {
		if database.IsDuplicate(err) {
			return fault.New(fault.Conflict, op, "name %q already in use", newName)
		}
		return fault.Wrap(fault.Internal, op, err)
	}
	if n == 0 {
		return fault.New(fault.NotFound, op, "website %q not found", websiteID)
	}
	return tx.Commit()
}

// Delete cascades: pages and their variant rows first (one transaction),
// then each domain's delete saga runs to terminal, and only then the
// website row goes away.
func (r *Registry) Delete(ctx context.Context, websiteID, userID string) error {
	const op = "website.delete"

	rec, err := r.Get(ctx, websiteID)
	if err != nil {
		return err
	}
	if rec.UserID != userID {
		return fault.New(fault.NotFound, op, "website %q not found", websiteID)
	}

	busy, err := r.domains.BusyCount(ctx, websiteID)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	if busy > 0 {
		return fault.New(fault.Conflict, op, "domain busy")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	defer tx.Rollback()
	if err := r.pages.DeleteForWebsite(ctx, tx, websiteID); err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	if err := r.themes.DeleteForWebsite(ctx, tx, websiteID); err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}

	ids, err := r.domains.IDsForWebsite(ctx, websiteID)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	for _, id := range ids {
		// Drop is idempotent; a provider failure aborts here and leaves
		// the website row so a retry can finish the cascade.
		if err := r.domains.Drop(ctx, id); err != nil {
			return err
		}
	}

	if _, err := remove(ctx, r.db, websiteID, userID); err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	r.log.Infow("website deleted", "website", websiteID, "user", userID)
	return nil
}

// Get returns one website row.
func (r *Registry) Get(ctx context.Context, websiteID string) (*Record, error) {
	const op = "website.get"
	rec, err := ByID(ctx, r.db, websiteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, op, "website %q not found", websiteID)
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rec, nil
}

// List returns every website owned by userID.
func (r *Registry) List(ctx context.Context, userID string) ([]Record, error) {
	const op = "website.list"
	rows, err := ByUser(ctx, r.db, userID)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rows, nil
}
