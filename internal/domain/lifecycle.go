// internal/domain/lifecycle.go
//
// DomainLifecycle — the saga that keeps a local Domain row and the
// external provider record in agreement.
//
// Context
// -------
// Provider calls cannot join a database transaction, so the lifecycle
// never holds one open across the network.  Instead each step is a CAS
// status move plus an idempotent provider call: retries after a crash
// replay the same idempotency key and converge on the same record.  Local
// invariants (name uniqueness, ownership) are checked before any external
// call so a doomed request costs no provider side effects.
//
// Sagas run on a background context — a caller disconnect must not strand
// a half-provisioned record.  Wait() drains in-flight sagas at shutdown;
// anything still unfinished is the reconciler's job on next boot.

package domain

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/database"
	"github.com/yanizio/forge/internal/dns"
	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/metrics"
)

// Config bounds the retry policy for provider calls.
type Config struct {
	MaxAttempts    int           // total attempts per saga step
	InitialBackoff time.Duration // first retry pause
	MaxBackoff     time.Duration // backoff ceiling
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Lifecycle owns every Domain status transition.
type Lifecycle struct {
	db       *sqlx.DB
	provider dns.ProviderClient
	cfg      Config
	log      *zap.SugaredLogger
	wg       sync.WaitGroup
}

// NewLifecycle wires the saga to its pool and provider.
func NewLifecycle(db *sqlx.DB, provider dns.ProviderClient, cfg Config, log *zap.SugaredLogger) *Lifecycle {
	return &Lifecycle{db: db, provider: provider, cfg: cfg.withDefaults(), log: log}
}

// Wait blocks until every in-flight saga goroutine reaches a terminal
// state.  Called during graceful shutdown.
func (l *Lifecycle) Wait() { l.wg.Wait() }

//
// request
//

// ValidateName rejects strings that are not a bare DNS name: it must
// contain a dot and survive a URL host parse unchanged.
func ValidateName(name string) error {
	const op = "domain.request"
	if !strings.Contains(name, ".") {
		return fault.New(fault.InvalidInput, op, "domain must contain a dot")
	}
	u, err := url.Parse("https://" + name)
	if err != nil || u.Host != name {
		return fault.New(fault.InvalidInput, op, "domain %q is not a valid host", name)
	}
	return nil
}

// Request registers name for websiteID and starts the provisioning saga.
// The global uniqueness probe and the insert share one transaction.  A
// failed row owned by the same website is re-armed instead of conflicting,
// which is what makes user retries idempotent.
func (l *Lifecycle) Request(ctx context.Context, websiteID, name string) (*Record, error) {
	const op = "domain.request"

	name = strings.ToLower(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	defer tx.Rollback()

	existing, err := byName(ctx, tx, name)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	var id uint64
	switch {
	case existing == nil:
		id, err = insert(ctx, tx, websiteID, name)
		if database.IsDuplicate(err) {
			// Concurrent request won the race between the probe and the
			// insert; the global UNIQUE index on name is the arbiter.
			return nil, fault.New(fault.Conflict, op, "domain %q already in use", name)
		}
		if err != nil {
			return nil, fault.Wrap(fault.Internal, op, err)
		}

	case existing.WebsiteID != websiteID:
		return nil, fault.New(fault.Conflict, op, "domain %q already in use", name)

	case existing.Status == StatusFailed:
		// User retry: re-arm the saga on the existing row.
		ok, err := casStatus(ctx, tx, existing.ID, StatusFailed, StatusPending)
		if err != nil {
			return nil, fault.Wrap(fault.Internal, op, err)
		}
		if !ok {
			return nil, fault.New(fault.Conflict, op, "domain busy")
		}
		id = existing.ID

	case existing.Status == StatusActive:
		return nil, fault.New(fault.Conflict, op, "domain %q already active", name)

	default:
		return nil, fault.New(fault.Conflict, op, "domain busy")
	}

	if err := tx.Commit(); err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	l.spawn(func() { l.provision(context.Background(), id) })
	return &Record{ID: id, WebsiteID: websiteID, Name: name, Status: StatusPending}, nil
}

//
// saga steps
//

// provision drives pending → verifying → active|failed.  Also re-entered
// by the reconciler for rows stranded in pending.
func (l *Lifecycle) provision(ctx context.Context, id uint64) {
	rec, err := byID(ctx, l.db, id)
	if err != nil {
		l.log.Errorw("provision load failed", "domain", id, "err", err)
		return
	}
	if rec.Status != StatusPending {
		return // another step won, or the row already settled
	}

	ref, err := l.callCreate(ctx, rec)
	if err != nil {
		l.fail(ctx, id, StatusPending, "provision", err)
		return
	}

	ok, err := setVerifying(ctx, l.db, id, ref)
	if err != nil || !ok {
		l.log.Errorw("provision cas lost", "domain", id, "err", err)
		return
	}
	l.log.Infow("domain verifying", "domain", id, "name", rec.Name, "ref", ref)
	metrics.DomainSagaTotal.WithLabelValues("provision", "verifying").Inc()

	l.verify(ctx, id, ref)
}

// verify polls the provider until the record settles or the attempt
// budget is spent.
func (l *Lifecycle) verify(ctx context.Context, id uint64, ref string) {
	bo := l.newBackOff()
	for {
		st, err := l.provider.RecordStatus(ctx, ref)
		switch {
		case err != nil && !fault.IsRetryable(err):
			l.fail(ctx, id, StatusVerifying, "verify", err)
			return

		case err == nil && st == dns.StatusActive:
			ok, casErr := casStatus(ctx, l.db, id, StatusVerifying, StatusActive)
			if casErr != nil || !ok {
				l.log.Errorw("verify cas lost", "domain", id, "err", casErr)
				return
			}
			l.log.Infow("domain active", "domain", id)
			metrics.DomainSagaTotal.WithLabelValues("verify", "active").Inc()
			return

		case err == nil && st == dns.StatusRejected:
			l.fail(ctx, id, StatusVerifying, "verify",
				fault.New(fault.Provider, "domain.verify", "record rejected by provider"))
			return
		}

		// still pending, or a retryable provider hiccup
		next := bo.NextBackOff()
		if next == backoff.Stop {
			l.fail(ctx, id, StatusVerifying, "verify",
				fault.New(fault.Exhausted, "domain.verify", "verification attempts exhausted"))
			return
		}
		if err != nil {
			metrics.ProviderRetriesTotal.Inc()
		}
		select {
		case <-ctx.Done():
			return // reconciler picks the row up later
		case <-time.After(next):
		}
	}
}

// Release starts the delete saga.  Only active and failed domains may be
// released; anything mid-saga is busy.
func (l *Lifecycle) Release(ctx context.Context, id uint64) error {
	const op = "domain.release"

	rec, err := l.Status(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.Busy() {
		return fault.New(fault.Conflict, op, "domain busy")
	}
	if !rec.Status.CanTransition(StatusDeleting) {
		return fault.New(fault.InvalidTransition, op,
			"cannot release domain in status %q", rec.Status)
	}

	ok, err := casStatus(ctx, l.db, id, rec.Status, StatusDeleting)
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	if !ok {
		return fault.New(fault.Conflict, op, "domain busy")
	}

	l.spawn(func() { l.destroy(context.Background(), id) })
	return nil
}

// destroy drives deleting → removed.  Exhaustion leaves the row in
// `deleting` for the reconciler; the row is gone only once the external
// record is confirmed gone.
func (l *Lifecycle) destroy(ctx context.Context, id uint64) {
	rec, err := byID(ctx, l.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err != nil {
		l.log.Errorw("destroy load failed", "domain", id, "err", err)
		return
	}
	if rec.Status != StatusDeleting {
		return
	}

	if rec.RecordRef.Valid {
		if err := l.callDelete(ctx, rec.RecordRef.String); err != nil {
			l.log.Errorw("destroy provider delete failed; leaving for reconciler",
				"domain", id, "err", err)
			metrics.DomainSagaTotal.WithLabelValues("destroy", "stalled").Inc()
			return
		}
	}

	if err := remove(ctx, l.db, id); err != nil {
		l.log.Errorw("destroy row delete failed", "domain", id, "err", err)
		return
	}
	l.log.Infow("domain removed", "domain", id, "name", rec.Name)
	metrics.DomainSagaTotal.WithLabelValues("destroy", "removed").Inc()
}

// Drop is the synchronous delete saga used by the website cascade: it
// returns only once the external record and the row are gone, so the
// caller can safely remove the website afterwards.
func (l *Lifecycle) Drop(ctx context.Context, id uint64) error {
	const op = "domain.drop"

	rec, err := byID(ctx, l.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}

	if rec.Status != StatusDeleting {
		// Same gate as Release: a row mid-provisioning may already own an
		// external record whose ref is not stored yet, so deleting it here
		// would orphan that record.
		if !rec.Status.CanTransition(StatusDeleting) {
			return fault.New(fault.Conflict, op, "domain busy")
		}
		ok, err := casStatus(ctx, l.db, id, rec.Status, StatusDeleting)
		if err != nil {
			return fault.Wrap(fault.Internal, op, err)
		}
		if !ok {
			return fault.New(fault.Conflict, op, "domain busy")
		}
	}

	if rec.RecordRef.Valid {
		if err := l.callDelete(ctx, rec.RecordRef.String); err != nil {
			return err
		}
	}
	if err := remove(ctx, l.db, id); err != nil {
		return fault.Wrap(fault.Internal, op, err)
	}
	return nil
}

//
// queries
//

// Status returns the row for polling; asynchronous saga outcomes surface
// here rather than as synchronous errors.
func (l *Lifecycle) Status(ctx context.Context, id uint64) (*Record, error) {
	const op = "domain.status"
	rec, err := byID(ctx, l.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, op, "domain %d not found", id)
	}
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rec, nil
}

// ListForWebsite returns every domain owned by a website.
func (l *Lifecycle) ListForWebsite(ctx context.Context, websiteID string) ([]Record, error) {
	const op = "domain.list"
	rows, err := listForWebsite(ctx, l.db, websiteID)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}
	return rows, nil
}

// BusyCount reports how many of a website's domains are mid-saga.
func (l *Lifecycle) BusyCount(ctx context.Context, websiteID string) (int, error) {
	return busyCount(ctx, l.db, websiteID)
}

// IDsForWebsite returns the ids of every domain owned by a website.
func (l *Lifecycle) IDsForWebsite(ctx context.Context, websiteID string) ([]uint64, error) {
	rows, err := listForWebsite(ctx, l.db, websiteID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

//
// plumbing
//

func (l *Lifecycle) spawn(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// fail records the terminal failure, CAS-guarded so it can never regress
// a row that settled elsewhere.
func (l *Lifecycle) fail(ctx context.Context, id uint64, from Status, step string, cause error) {
	ok, err := markFailed(ctx, l.db, id, from, cause.Error())
	if err != nil || !ok {
		l.log.Errorw("fail cas lost", "domain", id, "err", err)
		return
	}
	l.log.Warnw("domain failed", "domain", id, "step", step, "cause", cause)
	metrics.DomainSagaTotal.WithLabelValues(step, "failed").Inc()
}

func (l *Lifecycle) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.InitialBackoff
	bo.MaxInterval = l.cfg.MaxBackoff
	bo.MaxElapsedTime = 0
	return backoff.WithMaxRetries(bo, uint64(l.cfg.MaxAttempts-1))
}

func (l *Lifecycle) callCreate(ctx context.Context, rec *Record) (string, error) {
	var ref string
	op := func() error {
		r, err := l.provider.CreateRecord(ctx, rec.Name, rec.IdempotencyKey())
		if err != nil {
			if !fault.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		ref = r
		return nil
	}
	err := backoff.RetryNotify(op, l.newBackOff(), func(error, time.Duration) {
		metrics.ProviderRetriesTotal.Inc()
	})
	return ref, err
}

func (l *Lifecycle) callDelete(ctx context.Context, ref string) error {
	op := func() error {
		err := l.provider.DeleteRecord(ctx, ref)
		if err != nil && !fault.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, l.newBackOff(), func(error, time.Duration) {
		metrics.ProviderRetriesTotal.Inc()
	})
}
