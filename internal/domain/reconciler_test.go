package domain

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

func newTestReconciler(t *testing.T, provider *fakeProvider) (*Reconciler, sqlmock.Sqlmock) {
	t.Helper()
	lc, mock := newTestLifecycle(t, provider)
	return NewReconciler(lc, time.Minute, 5*time.Minute, zap.NewNop().Sugar()), mock
}

func TestSweep_RedrivesStaleVerifying(t *testing.T) {
	provider := newFakeProvider()
	rec, mock := newTestReconciler(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusVerifying, "cf-7"))
	mock.ExpectExec(casRe).
		WithArgs("active", 7, "verifying").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec.Sweep(context.Background())

	if provider.creates != 0 {
		t.Fatalf("verify re-drive must not create records, got %d", provider.creates)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSweep_ConvergesStalePendingWithoutDuplicate(t *testing.T) {
	// Crash window: the provider record was created but the row never
	// advanced past pending.  The re-driven create must hit the
	// idempotency key and reuse the existing record.
	provider := newFakeProvider()
	provider.created["dom-7"] = "ref-dom-7"

	rec, mock := newTestReconciler(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusPending, nil))
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusPending, nil))
	mock.ExpectExec(verifyingRe).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(casRe).WillReturnResult(sqlmock.NewResult(0, 1))

	rec.Sweep(context.Background())

	if provider.creates != 0 {
		t.Fatalf("re-driven create must reuse existing record, got %d creates", provider.creates)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSweep_FailsVerifyingRowWithoutRef(t *testing.T) {
	provider := newFakeProvider()
	rec, mock := newTestReconciler(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusVerifying, nil))
	mock.ExpectExec(failedRe).WillReturnResult(sqlmock.NewResult(0, 1))

	rec.Sweep(context.Background())

	if provider.creates != 0 || len(provider.deleted) != 0 {
		t.Fatal("no provider call expected for a ref-less row")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSweep_RedrivesStaleDeleting(t *testing.T) {
	provider := newFakeProvider()
	rec, mock := newTestReconciler(t, provider)

	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusDeleting, "cf-7"))
	mock.ExpectQuery(selectRe).
		WillReturnRows(domainRow(7, "w1", "shop.example.com", StatusDeleting, "cf-7"))
	mock.ExpectExec(removeRe).WillReturnResult(sqlmock.NewResult(0, 1))

	rec.Sweep(context.Background())

	if len(provider.deleted) != 1 || provider.deleted[0] != "cf-7" {
		t.Fatalf("provider record not deleted: %v", provider.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
