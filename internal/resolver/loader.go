package resolver

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/forge/internal/customization"
	"github.com/yanizio/forge/internal/domain"
	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/website"
)

// loadSite turns host → *Site.  Two host shapes resolve:
//
//  1. `<website id>.<main domain>` — the subdomain every website gets at
//     creation; the label before the main domain is the website id.
//  2. A custom domain name with an `active` row in the domain table.
//
// Anything else is NotFound.  Domains mid-saga deliberately do not
// resolve: a host starts serving only once the provider confirms it.
func loadSite(ctx context.Context, db *sqlx.DB, mainDomain, host string) (*Site, error) {
	const op = "resolver.load"

	websiteID, err := websiteIDForHost(ctx, db, mainDomain, host)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	if websiteID == "" {
		return nil, fault.New(fault.NotFound, op, "no site for host %q", host)
	}

	rec, err := website.ByID(ctx, db, websiteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, op, "no site for host %q", host)
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	theme, err := customization.ForWebsite(ctx, db, websiteID)
	if errors.Is(err, sql.ErrNoRows) {
		// Uncustomized websites serve the default theme.
		theme = &customization.Record{WebsiteID: websiteID}
	} else if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	return &Site{Host: host, Website: *rec, Theme: *theme}, nil
}

func websiteIDForHost(ctx context.Context, db *sqlx.DB, mainDomain, host string) (string, error) {
	if label, ok := strings.CutSuffix(host, "."+mainDomain); ok {
		if label != "" && !strings.Contains(label, ".") {
			return label, nil
		}
		return "", nil
	}
	return domain.ActiveWebsiteID(ctx, db, host)
}
