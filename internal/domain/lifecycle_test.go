package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/dns"
	"github.com/yanizio/forge/internal/fault"
)

// SQL fragments matched against sqlmock's default regexp matcher.  Full
// queries span multiple lines, so expectations use short single-line
// fragments that appear verbatim in the real statements.
const (
	selectRe     = `SELECT id, website_id, name, status`
	insertRe     = `INSERT INTO domain`
	casRe        = `UPDATE domain SET status = \?, updated_at`
	verifyingRe  = `UPDATE domain SET status = \?, record_ref`
	failedRe     = `UPDATE domain SET status = \?, last_error`
	removeRe     = `DELETE FROM domain`
	busyCountRe  = `SELECT COUNT\(\*\) FROM domain`
)

var domainCols = []string{
	"id", "website_id", "name", "status",
	"record_ref", "last_error", "created_at", "updated_at",
}

func domainRow(id uint64, websiteID, name string, st Status, ref any) *sqlmock.Rows {
	return sqlmock.NewRows(domainCols).
		AddRow(id, websiteID, name, st, ref, nil, time.Now(), time.Now())
}

// fakeProvider mimics a DNS provider with idempotency-key semantics: a
// repeated create with a known key returns the existing ref without
// counting as a new record.
type fakeProvider struct {
	mu        sync.Mutex
	created   map[string]string // idempotency key -> ref
	creates   int
	status    dns.RecordStatus
	statusErr error
	createErr error
	deleteErr error
	deleted   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{created: map[string]string{}, status: dns.StatusActive}
}

func (p *fakeProvider) CreateRecord(_ context.Context, name, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	if ref, ok := p.created[key]; ok {
		return ref, nil
	}
	p.creates++
	ref := fmt.Sprintf("ref-%s", key)
	p.created[key] = ref
	return ref, nil
}

func (p *fakeProvider) RecordStatus(_ context.Context, _ string) (dns.RecordStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.statusErr
}

func (p *fakeProvider) DeleteRecord(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, ref)
	return nil
}

func newTestLifecycle(t *testing.T, provider *fakeProvider) (*Lifecycle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := Config{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	lc := NewLifecycle(sqlx.NewDb(db, "sqlmock"), provider, cfg, zap.NewNop().Sugar())
	return lc, mock
}

func TestRequest_ProvisionsToActive(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRe).WillReturnRows(sqlmock.NewRows(domainCols)) // byName: free
	mock.ExpectExec(insertRe).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	// saga goroutine
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusPending, nil))
	mock.ExpectExec(verifyingRe).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(casRe).
		WithArgs("active", 7, "verifying").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := lc.Request(context.Background(), "w1", "Shop.Example.COM")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if rec.Name != "shop.example.com" {
		t.Fatalf("name not lowercased: %q", rec.Name)
	}
	if rec.Status != StatusPending {
		t.Fatalf("request should return pending, got %s", rec.Status)
	}

	lc.Wait()
	if provider.creates != 1 {
		t.Fatalf("want 1 provider create, got %d", provider.creates)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRequest_NameInUseByOtherWebsite(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(3, "other", "shop.example.com", StatusActive, "ref-dom-3"))
	mock.ExpectRollback()

	_, err := lc.Request(context.Background(), "w1", "shop.example.com")
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict, got %v", err)
	}
	lc.Wait()
	if provider.creates != 0 {
		t.Fatalf("no provider call expected, got %d creates", provider.creates)
	}
}

func TestRequest_BusyWhileVerifying(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(3, "w1", "shop.example.com", StatusVerifying, "ref-dom-3"))
	mock.ExpectRollback()

	_, err := lc.Request(context.Background(), "w1", "shop.example.com")
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict, got %v", err)
	}
	lc.Wait()
	if provider.creates != 0 {
		t.Fatalf("no provider call expected, got %d creates", provider.creates)
	}
}

func TestRequest_RearmsFailedDomain(t *testing.T) {
	provider := newFakeProvider()
	provider.created["dom-3"] = "ref-dom-3" // record survived the earlier attempt

	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(3, "w1", "shop.example.com", StatusFailed, nil))
	mock.ExpectExec(casRe).
		WithArgs("pending", 3, "failed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(3, "w1", "shop.example.com", StatusPending, nil))
	mock.ExpectExec(verifyingRe).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(casRe).WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := lc.Request(context.Background(), "w1", "shop.example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if rec.ID != 3 {
		t.Fatalf("re-arm must reuse the row, got id %d", rec.ID)
	}

	lc.Wait()
	if provider.creates != 0 {
		t.Fatalf("idempotency key must prevent a second record, got %d creates", provider.creates)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRequest_RejectsInvalidName(t *testing.T) {
	lc, _ := newTestLifecycle(t, newFakeProvider())

	for _, name := range []string{"", "nodot", "bad name.com", "a.b/c"} {
		_, err := lc.Request(context.Background(), "w1", name)
		if fault.KindOf(err) != fault.InvalidInput {
			t.Errorf("%q: want InvalidInput, got %v", name, err)
		}
	}
}

func TestRelease_DestroysRecordThenRow(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusActive, "cf-7"))
	mock.ExpectExec(casRe).
		WithArgs("deleting", 7, "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// destroy goroutine
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusDeleting, "cf-7"))
	mock.ExpectExec(removeRe).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := lc.Release(context.Background(), 7); err != nil {
		t.Fatalf("release: %v", err)
	}

	lc.Wait()
	if len(provider.deleted) != 1 || provider.deleted[0] != "cf-7" {
		t.Fatalf("provider record not deleted: %v", provider.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRelease_BusyDomain(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusPending, nil))

	err := lc.Release(context.Background(), 7)
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict, got %v", err)
	}
	if len(provider.deleted) != 0 {
		t.Fatal("busy release must not touch the provider")
	}
}

func TestProvision_ExhaustionMarksFailed(t *testing.T) {
	provider := newFakeProvider()
	provider.createErr = fault.ProviderErr("dns.create", errors.New("upstream flapping"), true)

	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusPending, nil))
	mock.ExpectExec(failedRe).WillReturnResult(sqlmock.NewResult(0, 1))

	lc.provision(context.Background(), 7)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDrop_RejectsMidProvisionDomain(t *testing.T) {
	// A domain that slipped back to pending after the cascade's busy probe
	// may own an external record whose ref is not stored yet.  Drop must
	// refuse rather than delete the row and orphan that record.
	for _, st := range []Status{StatusPending, StatusVerifying} {
		provider := newFakeProvider()
		lc, mock := newTestLifecycle(t, provider)

		mock.ExpectQuery(selectRe).
			WillReturnRows(domainRow(7, "w1", "shop.example.com", st, nil))

		err := lc.Drop(context.Background(), 7)
		if fault.KindOf(err) != fault.Conflict {
			t.Errorf("%s: want Conflict, got %v", st, err)
		}
		if len(provider.deleted) != 0 {
			t.Errorf("%s: no provider call expected", st)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("%s: row must not be touched: %v", st, err)
		}
	}
}

func TestDrop_RedrivesDeletingRow(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusDeleting, "cf-7"))
	mock.ExpectExec(removeRe).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := lc.Drop(context.Background(), 7); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if len(provider.deleted) != 1 || provider.deleted[0] != "cf-7" {
		t.Fatalf("provider record not deleted: %v", provider.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDrop_AbsentRowIsNoop(t *testing.T) {
	provider := newFakeProvider()
	lc, mock := newTestLifecycle(t, provider)

	mock.ExpectQuery(selectRe).WillReturnRows(sqlmock.NewRows(domainCols))

	if err := lc.Drop(context.Background(), 99); err != nil {
		t.Fatalf("drop of absent row must succeed: %v", err)
	}
	if len(provider.deleted) != 0 {
		t.Fatal("no provider call expected")
	}
}

func TestBusyCount(t *testing.T) {
	lc, mock := newTestLifecycle(t, newFakeProvider())

	mock.ExpectQuery(busyCountRe).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(2))

	n, err := lc.BusyCount(context.Background(), "w1")
	if err != nil {
		t.Fatalf("busy count: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2, got %d", n)
	}
}
