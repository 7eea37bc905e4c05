// internal/customization/service.go
//
// Per-website theming: primary/secondary brand colors and a logo URL.
//
// Context
// -------
// The theme is a single optional row keyed by website id.  Reads never
// fail on absence (a new website renders with the default theme), writes
// are whole-row upserts, and the website delete cascade removes the row
// inside the same transaction as the pages.

package customization

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"regexp"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/fault"
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service implements theme reads and writes for the management API and
// the website delete cascade.
type Service struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

func NewService(db *sqlx.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Get returns the stored theme, or a zero-valued Record when the website
// has never been customized.
func (s *Service) Get(ctx context.Context, websiteID string) (*Record, error) {
	const op = "customization.get"

	rec, err := ForWebsite(ctx, s.db, websiteID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Record{WebsiteID: websiteID}, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rec, nil
}

// Put replaces the whole theme.  Nil fields clear the stored value.
func (s *Service) Put(ctx context.Context, websiteID string, primary, secondary, logo *string) (*Record, error) {
	const op = "customization.put"

	for _, c := range []*string{primary, secondary} {
		if c != nil && !colorRe.MatchString(*c) {
			return nil, fault.New(fault.InvalidInput, op, "color %q is not #rrggbb", *c)
		}
	}
	if logo != nil {
		u, err := url.Parse(*logo)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fault.New(fault.InvalidInput, op, "logo url %q is not an absolute http(s) url", *logo)
		}
	}

	if err := upsert(ctx, s.db, websiteID, primary, secondary, logo); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	s.log.Infow("theme updated", "website", websiteID)
	return s.Get(ctx, websiteID)
}

// Reset drops the theme row, returning the website to the default theme.
// Resetting an uncustomized website is a no-op.
func (s *Service) Reset(ctx context.Context, websiteID string) error {
	const op = "customization.reset"

	if err := remove(ctx, s.db, websiteID); err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	s.log.Infow("theme reset", "website", websiteID)
	return nil
}

// DeleteForWebsite removes the theme row inside the caller's transaction.
// Used by the website delete cascade.
func (s *Service) DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error {
	return remove(ctx, tx, websiteID)
}
